package handler

import (
	"net/http"
	"time"

	"wallet-pos-bridge/internal/adapter/http/dto"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler manages the POS credential pair.
type AdminHandler struct {
	creds ports.CredentialManager
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(creds ports.CredentialManager) *AdminHandler {
	return &AdminHandler{creds: creds}
}

// GenerateCredentials handles POST /api/v1/admin/credentials. The previous
// pair stops working immediately; the new secret is only shown here.
func (h *AdminHandler) GenerateCredentials(c *gin.Context) {
	creds, err := h.creds.Generate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CredentialsResponse{
		APIKey:        creds.APIKey,
		SigningSecret: creds.SigningSecret,
		GeneratedAt:   creds.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

// RevokeCredentials handles DELETE /api/v1/admin/credentials.
func (h *AdminHandler) RevokeCredentials(c *gin.Context) {
	if err := h.creds.Revoke(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Status(c, http.StatusOK, gin.H{"revoked": true})
}
