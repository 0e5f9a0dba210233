package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful mutations made by the POS or an operator.
// It maps route patterns to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		action, resourceType := mapPathToAction(route, c.Request.Method)
		if action == "" {
			return
		}

		actor := c.GetString(CtxActor)
		if actor == "" {
			actor = "anonymous"
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Actor:        actor,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/pos/credit" && method == http.MethodPost:
		return domain.AuditActionPOSCredit, "wallet"
	case path == "/api/v1/pos/debit" && method == http.MethodPost:
		return domain.AuditActionPOSDebit, "wallet"
	case path == "/api/v1/pos/qr-pay" && method == http.MethodPost:
		return domain.AuditActionQRPayment, "wallet"
	case path == "/api/v1/pos/webhook" && method == http.MethodPost:
		return domain.AuditActionWebhook, "webhook"
	case path == "/api/v1/orders/:id/refund" && method == http.MethodPost:
		return domain.AuditActionRefund, "order"
	case path == "/api/v1/admin/credentials" && method == http.MethodPost:
		return domain.AuditActionRotateCredentials, "credentials"
	case path == "/api/v1/admin/credentials" && method == http.MethodDelete:
		return domain.AuditActionRevokeCredentials, "credentials"
	}
	return "", ""
}
