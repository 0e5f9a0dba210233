package handler

import (
	"io"

	"wallet-pos-bridge/internal/adapter/http/dto"
	"wallet-pos-bridge/internal/adapter/http/middleware"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"
	"wallet-pos-bridge/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives signed events pushed by the POS.
type WebhookHandler struct {
	processor ports.WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(processor ports.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// Receive handles POST /api/v1/pos/webhook. The body has already been
// verified by middleware.WebhookSignature; the reply is flat, not enveloped.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var body []byte
	if raw, ok := c.Get(middleware.CtxRawBody); ok {
		body, _ = raw.([]byte)
	}
	if body == nil {
		var err error
		if body, err = io.ReadAll(c.Request.Body); err != nil {
			response.Error(c, apperror.Validation("cannot read request body"))
			return
		}
	}

	result, err := h.processor.Process(c.Request.Context(), body)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(result.Status, dto.WebhookResponse{
		Success:       result.Status < 300,
		Message:       result.Message,
		TransactionID: result.TransactionID,
		UserID:        result.UserID,
		Version:       result.Version,
	})
}
