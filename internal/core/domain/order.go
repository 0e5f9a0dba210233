package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the storefront lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentMethodWallet identifies orders paid from the wallet.
const PaymentMethodWallet = "wallet"

// Order is the slice of a storefront order the payment flow reads and stamps.
type Order struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customer_id"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	Status           OrderStatus     `json:"status"`
	PaymentMethod    string          `json:"payment_method"`
	TransactionID    *int64          `json:"transaction_id,omitempty"`
	POSTransactionID string          `json:"pos_transaction_id,omitempty"`
	POSReference     string          `json:"pos_reference,omitempty"`
	PaidViaSSoT      bool            `json:"paid_via_ssot"`
	IsRenewal        bool            `json:"is_renewal"`
	RenewalProcessed bool            `json:"renewal_processed"`
	RefundedTotal    decimal.Decimal `json:"refunded_total"`
	RefundCount      int             `json:"refund_count"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AwaitingPayment reports whether the order can still be paid.
func (o *Order) AwaitingPayment() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusFailed
}

// IsPaid reports whether payment has been taken for the order.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusProcessing || o.Status == OrderStatusCompleted
}

// HasLedgerDebit reports whether the local completion debit already happened.
func (o *Order) HasLedgerDebit() bool {
	return o.TransactionID != nil
}

// Refundable is what remains of the total after earlier refunds.
func (o *Order) Refundable() decimal.Decimal {
	return o.Total.Sub(o.RefundedTotal)
}
