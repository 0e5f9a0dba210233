package handler

import (
	"strconv"

	"wallet-pos-bridge/internal/adapter/http/dto"
	"wallet-pos-bridge/internal/adapter/http/middleware"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"
	"wallet-pos-bridge/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderHandler exposes the wallet checkout to the storefront.
type OrderHandler struct {
	checkout ports.CheckoutService
	orders   ports.OrderRepository
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(checkout ports.CheckoutService, orders ports.OrderRepository) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders}
}

// Availability handles GET /api/v1/checkout/availability?cart_total=.
// Admins may ask on behalf of a customer with customer_id.
func (h *OrderHandler) Availability(c *gin.Context) {
	customerID, err := callerCustomerID(c, c.Query("customer_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	cartTotal, err := decimal.NewFromString(c.Query("cart_total"))
	if err != nil || cartTotal.IsNegative() {
		response.Error(c, apperror.Validation("cart_total must be a non-negative amount"))
		return
	}

	ok, err := h.checkout.IsAvailable(c.Request.Context(), customerID, cartTotal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.AvailabilityResponse{Available: ok, CartTotal: cartTotal.StringFixed(2)})
}

// Pay handles POST /api/v1/orders/:id/pay.
func (h *OrderHandler) Pay(c *gin.Context) {
	orderID, ok := h.ownedOrder(c)
	if !ok {
		return
	}

	result, err := h.checkout.ProcessPayment(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOrderPaymentResponse(result.Order, result.TransactionID, result.Reference))
}

// Complete handles POST /api/v1/orders/:id/complete.
func (h *OrderHandler) Complete(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.checkout.CompletePayment(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOrderPaymentResponse(order, "", ""))
}

// Refund handles POST /api/v1/orders/:id/refund. A zero amount refunds the
// whole order.
func (h *OrderHandler) Refund(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.checkout.ProcessRefund(c.Request.Context(), orderID, req.Amount, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOrderPaymentResponse(result.Order, result.TransactionID, result.Reference))
}

// Renew handles POST /api/v1/orders/:id/renew.
func (h *OrderHandler) Renew(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.checkout.ProcessRenewal(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOrderPaymentResponse(result.Order, result.TransactionID, result.Reference))
}

// ownedOrder parses :id and rejects storefront callers paying someone else's order.
func (h *OrderHandler) ownedOrder(c *gin.Context) (int64, bool) {
	orderID, ok := pathID(c)
	if !ok {
		return 0, false
	}
	if c.GetString(middleware.CtxRole) == ports.RoleAdmin {
		return orderID, true
	}

	customerID, err := callerCustomerID(c, "")
	if err != nil {
		response.Error(c, err)
		return 0, false
	}

	order, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return 0, false
	}
	if order == nil {
		response.Error(c, apperror.ErrNotFound("Order"))
		return 0, false
	}
	if order.CustomerID != customerID {
		response.Error(c, apperror.ErrForbidden())
		return 0, false
	}
	return orderID, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// callerCustomerID returns the customer behind a storefront token. Admin
// tokens carry no customer, so the id must be supplied explicitly.
func callerCustomerID(c *gin.Context, explicit string) (int64, error) {
	raw := c.GetString(middleware.CtxSubject)
	if c.GetString(middleware.CtxRole) == ports.RoleAdmin {
		raw = explicit
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("customer id is required")
	}
	return id, nil
}
