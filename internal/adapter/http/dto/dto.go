package dto

import (
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"

	"github.com/shopspring/decimal"
)

// LoginRequest is the request body for storefront customer login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// POSEntryRequest is the body of POST /pos/credit and /pos/debit.
type POSEntryRequest struct {
	Email     string          `json:"email" binding:"omitempty,email,max=254"`
	UserID    int64           `json:"user_id" binding:"omitempty,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" binding:"omitempty,max=100,safe_id"`
	Note      string          `json:"note" binding:"omitempty,max=500"`
}

// QRPayRequest is the body of POST /pos/qr-pay.
type QRPayRequest struct {
	QRData    string          `json:"qr_data" binding:"required,max=2048"`
	Amount    decimal.Decimal `json:"amount"`
	Terminal  string          `json:"terminal" binding:"omitempty,max=100"`
	Reference string          `json:"reference" binding:"omitempty,max=100,safe_id"`
}

// RefundRequest is the body of POST /orders/:id/refund.
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"max=500"`
}

// BalanceResponse is the response for GET /pos/balance.
type BalanceResponse struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Locked   bool   `json:"locked"`
}

// EntryResponse is the response for a POS credit, debit or QR payment.
type EntryResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	NewBalance    string `json:"new_balance"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference,omitempty"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Terminal      string `json:"terminal,omitempty"`
}

// TransactionResponse is one ledger row as the POS sees it.
type TransactionResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
	Details       string `json:"details"`
	Date          string `json:"date"`
	Origin        string `json:"origin,omitempty"`
	Reference     string `json:"reference,omitempty"`
}

// TransactionListResponse wraps paginated transaction list.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PerPage      int                   `json:"per_page"`
	TotalPages   int                   `json:"total_pages"`
}

// CustomerResponse is the response for GET /pos/customer.
type CustomerResponse struct {
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Balance    string `json:"balance"`
	Currency   string `json:"currency"`
	Locked     bool   `json:"locked"`
	Registered string `json:"registered"`
}

// StatusResponse is the response for GET /pos/status.
type StatusResponse struct {
	Service       string `json:"service"`
	Version       string `json:"version"`
	POSConfigured bool   `json:"pos_configured"`
	SSoT          bool   `json:"ssot"`
	Currency      string `json:"currency"`
	WebhookURL    string `json:"webhook_url"`
	Timestamp     string `json:"timestamp"`
	POSConnection string `json:"pos_connection,omitempty"`
	POSError      string `json:"pos_error,omitempty"`
}

// WebhookResponse is written as-is, without the success envelope, because
// the POS reads the flat shape.
type WebhookResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	TransactionID *int64 `json:"transaction_id,omitempty"`
	UserID        *int64 `json:"user_id,omitempty"`
	Version       string `json:"version,omitempty"`
}

// AvailabilityResponse tells the checkout whether the wallet can be offered.
type AvailabilityResponse struct {
	Available bool   `json:"available"`
	CartTotal string `json:"cart_total"`
}

// OrderPaymentResponse is returned after pay, complete, refund and renew.
type OrderPaymentResponse struct {
	OrderID          int64  `json:"order_id"`
	Status           string `json:"status"`
	TransactionID    string `json:"transaction_id,omitempty"`
	Reference        string `json:"reference,omitempty"`
	PaidViaSSoT      bool   `json:"paid_via_ssot"`
	POSTransactionID string `json:"pos_transaction_id,omitempty"`
}

// QRResponse carries the payload the storefront renders as a QR code.
type QRResponse struct {
	QRData    string `json:"qr_data"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	ExpiresAt int64  `json:"expires_at"` // Unix timestamp
}

// WalletEntryResponse is one history row on the wallet page.
type WalletEntryResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Amount  string `json:"amount"`
	Details string `json:"details"`
	Date    string `json:"date"`
}

// WalletResponse is the response for GET /customers/:id/wallet.
type WalletResponse struct {
	UserID        int64                 `json:"user_id"`
	Balance       string                `json:"balance"`
	Currency      string                `json:"currency"`
	SSoT          bool                  `json:"ssot"`
	Degraded      bool                  `json:"degraded"`
	HistorySource string                `json:"history_source"`
	History       []WalletEntryResponse `json:"history"`
}

// CredentialsResponse is shown once, right after generation.
type CredentialsResponse struct {
	APIKey        string `json:"api_key"`
	SigningSecret string `json:"signing_secret"`
	GeneratedAt   string `json:"generated_at"`
}

// NewBalanceResponse maps a service balance view.
func NewBalanceResponse(v *ports.BalanceView) BalanceResponse {
	return BalanceResponse{
		UserID:   v.Customer.ID,
		Email:    v.Customer.Email,
		Balance:  v.Balance.StringFixed(2),
		Currency: v.Currency,
		Locked:   v.Customer.WalletLocked,
	}
}

// NewEntryResponse maps a service entry view.
func NewEntryResponse(v *ports.EntryView) EntryResponse {
	resp := EntryResponse{
		NewBalance: v.NewBalance.StringFixed(2),
		Currency:   v.Currency,
		Reference:  v.Reference,
		Duplicate:  v.Duplicate,
		Terminal:   v.Terminal,
	}
	if t := v.Transaction; t != nil {
		resp.TransactionID = t.ID
		resp.Type = string(t.Type)
		resp.Amount = t.Amount.StringFixed(2)
		if resp.Reference == "" {
			resp.Reference = t.ExternalReference()
		}
	}
	if v.Terminal != "" && v.Customer != nil {
		resp.CustomerEmail = v.Customer.Email
	}
	return resp
}

// NewTransactionResponse maps a ledger row.
func NewTransactionResponse(t domain.WalletTransaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.ID,
		Type:          string(t.Type),
		Amount:        t.Amount.StringFixed(2),
		Balance:       t.Balance.StringFixed(2),
		Currency:      t.Currency,
		Details:       t.Details,
		Date:          t.CreatedAt.UTC().Format(time.RFC3339),
		Origin:        string(t.Origin()),
		Reference:     t.ExternalReference(),
	}
}

// NewTransactionListResponse maps a page of history.
func NewTransactionListResponse(p *ports.TransactionPage) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(p.Transactions))
	for _, t := range p.Transactions {
		items = append(items, NewTransactionResponse(t))
	}
	return TransactionListResponse{
		Transactions: items,
		Total:        p.Total,
		Page:         p.Page,
		PerPage:      p.PerPage,
		TotalPages:   p.TotalPages,
	}
}

// NewWalletResponse maps the wallet page view.
func NewWalletResponse(v *ports.WalletView) WalletResponse {
	history := make([]WalletEntryResponse, 0, len(v.History))
	for _, e := range v.History {
		history = append(history, WalletEntryResponse{
			ID:      e.ID,
			Type:    e.Type,
			Amount:  e.Amount.StringFixed(2),
			Details: e.Details,
			Date:    e.Date,
		})
	}
	resp := WalletResponse{
		Balance:       v.Balance.StringFixed(2),
		Currency:      v.Currency,
		SSoT:          v.SSoT,
		Degraded:      v.Degraded,
		HistorySource: v.HistorySource,
		History:       history,
	}
	if v.Customer != nil {
		resp.UserID = v.Customer.ID
	}
	return resp
}

// NewCustomerResponse maps a customer lookup.
func NewCustomerResponse(v *ports.BalanceView) CustomerResponse {
	c := v.Customer
	return CustomerResponse{
		UserID:     c.ID,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Name:       c.DisplayName(),
		Phone:      c.Phone,
		Balance:    v.Balance.StringFixed(2),
		Currency:   v.Currency,
		Locked:     c.WalletLocked,
		Registered: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewStatusResponse maps the integration status.
func NewStatusResponse(service string, v *ports.StatusView) StatusResponse {
	return StatusResponse{
		Service:       service,
		Version:       v.Version,
		POSConfigured: v.POSConfigured,
		SSoT:          v.SSoT,
		Currency:      v.Currency,
		WebhookURL:    v.WebhookURL,
		Timestamp:     v.CheckedAt.UTC().Format(time.RFC3339),
		POSConnection: v.Connection,
		POSError:      v.ConnectionErr,
	}
}

// NewOrderPaymentResponse maps an order after a payment step.
func NewOrderPaymentResponse(o *domain.Order, transactionID, reference string) OrderPaymentResponse {
	return OrderPaymentResponse{
		OrderID:          o.ID,
		Status:           string(o.Status),
		TransactionID:    transactionID,
		Reference:        reference,
		PaidViaSSoT:      o.PaidViaSSoT,
		POSTransactionID: o.POSTransactionID,
	}
}
