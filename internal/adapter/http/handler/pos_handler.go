package handler

import (
	"strconv"

	"wallet-pos-bridge/internal/adapter/http/dto"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"
	"wallet-pos-bridge/pkg/response"

	"github.com/gin-gonic/gin"
)

// POSHandler serves the endpoints the POS calls with its API key.
type POSHandler struct {
	pos     ports.POSService
	service string
}

// NewPOSHandler creates a new POSHandler. service is reported by /pos/status.
func NewPOSHandler(pos ports.POSService, service string) *POSHandler {
	return &POSHandler{pos: pos, service: service}
}

// Balance handles GET /api/v1/pos/balance?email=|user_id=.
func (h *POSHandler) Balance(c *gin.Context) {
	lookup, err := lookupFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.pos.Balance(c.Request.Context(), lookup)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewBalanceResponse(view))
}

// Credit handles POST /api/v1/pos/credit.
func (h *POSHandler) Credit(c *gin.Context) {
	req, ok := bindEntry(c)
	if !ok {
		return
	}

	view, err := h.pos.Credit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewEntryResponse(view))
}

// Debit handles POST /api/v1/pos/debit.
func (h *POSHandler) Debit(c *gin.Context) {
	req, ok := bindEntry(c)
	if !ok {
		return
	}

	view, err := h.pos.Debit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewEntryResponse(view))
}

// Transactions handles GET /api/v1/pos/transactions?email=&page=&per_page=.
func (h *POSHandler) Transactions(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error(c, apperror.Validation("email is required"))
		return
	}

	page, err := optionalInt(c, "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	perPage, err := optionalInt(c, "per_page")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.pos.Transactions(c.Request.Context(), email, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(result))
}

// Customer handles GET /api/v1/pos/customer?email=|phone=.
func (h *POSHandler) Customer(c *gin.Context) {
	lookup := ports.CustomerLookup{Email: c.Query("email"), Phone: c.Query("phone")}
	if lookup.Email == "" && lookup.Phone == "" {
		response.Error(c, apperror.Validation("email or phone is required"))
		return
	}

	view, err := h.pos.LookupCustomer(c.Request.Context(), lookup)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewCustomerResponse(view))
}

// QRPay handles POST /api/v1/pos/qr-pay.
func (h *POSHandler) QRPay(c *gin.Context) {
	var req dto.QRPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	view, err := h.pos.QRPay(c.Request.Context(), ports.QRPayRequest{
		QRData:    req.QRData,
		Amount:    req.Amount,
		Terminal:  req.Terminal,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewEntryResponse(view))
}

// Status handles GET /api/v1/pos/status.
func (h *POSHandler) Status(c *gin.Context) {
	view, err := h.pos.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewStatusResponse(h.service, view))
}

func bindEntry(c *gin.Context) (ports.POSEntryRequest, bool) {
	var req dto.POSEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return ports.POSEntryRequest{}, false
	}
	dto.SanitizeStruct(&req)

	if req.Email == "" && req.UserID == 0 {
		response.Error(c, apperror.Validation("email or user_id is required"))
		return ports.POSEntryRequest{}, false
	}

	return ports.POSEntryRequest{
		Lookup:    ports.CustomerLookup{Email: req.Email, UserID: req.UserID},
		Amount:    req.Amount,
		Reference: req.Reference,
		Note:      req.Note,
	}, true
}

func lookupFromQuery(c *gin.Context) (ports.CustomerLookup, error) {
	lookup := ports.CustomerLookup{Email: c.Query("email")}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return lookup, apperror.Validation("user_id must be a positive integer")
		}
		lookup.UserID = id
	}
	if lookup.Email == "" && lookup.UserID == 0 {
		return lookup, apperror.Validation("email or user_id is required")
	}
	return lookup, nil
}

// optionalInt returns 0 when the parameter is absent so the service default applies.
func optionalInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperror.Validation(name + " must be a non-negative integer")
	}
	return v, nil
}
