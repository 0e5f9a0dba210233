package handler

import (
	"encoding/json"
	"time"

	"wallet-pos-bridge/internal/adapter/http/dto"
	"wallet-pos-bridge/internal/adapter/http/middleware"
	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"
	"wallet-pos-bridge/pkg/response"

	"github.com/gin-gonic/gin"
)

// CustomerHandler serves the storefront's customer wallet pages.
type CustomerHandler struct {
	qr     ports.QRService
	wallet ports.WalletViewer
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(qr ports.QRService, wallet ports.WalletViewer) *CustomerHandler {
	return &CustomerHandler{qr: qr, wallet: wallet}
}

// ownCustomer resolves :id and rejects storefront callers asking for
// someone else's wallet.
func ownCustomer(c *gin.Context) (int64, bool) {
	customerID, ok := pathID(c)
	if !ok {
		return 0, false
	}
	if c.GetString(middleware.CtxRole) != ports.RoleAdmin {
		own, err := callerCustomerID(c, "")
		if err != nil || own != customerID {
			response.Error(c, apperror.ErrForbidden())
			return 0, false
		}
	}
	return customerID, true
}

// Wallet handles GET /api/v1/customers/:id/wallet.
func (h *CustomerHandler) Wallet(c *gin.Context) {
	customerID, ok := ownCustomer(c)
	if !ok {
		return
	}

	view, err := h.wallet.WalletView(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(view))
}

// PaymentQR handles GET /api/v1/customers/:id/qr. Customers may only fetch
// their own code.
func (h *CustomerHandler) PaymentQR(c *gin.Context) {
	customerID, ok := ownCustomer(c)
	if !ok {
		return
	}

	token, err := h.qr.Issue(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, err := json.Marshal(token)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.QRResponse{
		QRData:    string(payload),
		Balance:   token.Balance.StringFixed(2),
		Currency:  token.Currency,
		ExpiresAt: token.Timestamp + int64(domain.QRFreshnessWindow/time.Second),
	})
}
