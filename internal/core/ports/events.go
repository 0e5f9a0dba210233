package ports

import (
	"context"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Extension point names.
const (
	EventTransactionRecorded = "transaction.recorded"
	EventPaymentProcessed    = "wallet.payment_processed"
	EventOrderRefunded       = "order.refunded"
	EventPaymentAvailability = "payment.availability"
	WebhookEventPrefix       = "webhook."
)

// Listener observes an event. Its error is logged, never propagated.
type Listener func(ctx context.Context, payload any) error

// Validator vetoes an operation by returning an error.
type Validator func(ctx context.Context, payload any) error

// EventBus is a registry of named extension points. Listeners and validators
// run synchronously in registration order.
type EventBus interface {
	Subscribe(event string, l Listener)
	Publish(ctx context.Context, event string, payload any)
	AddValidator(event string, v Validator)
	Validate(ctx context.Context, event string, payload any) error
}

// TransactionRecorded is published after every ledger write.
type TransactionRecorded struct {
	Transaction *domain.WalletTransaction
}

// PaymentProcessed is published when an order debit has been taken.
type PaymentProcessed struct {
	Order         *domain.Order
	TransactionID string
}

// OrderRefunded is published after a successful refund in either mode.
type OrderRefunded struct {
	Order         *domain.Order
	Amount        decimal.Decimal
	Reason        string
	TransactionID string
}

// AvailabilityCheck is validated before the wallet is offered at checkout.
type AvailabilityCheck struct {
	Customer  *domain.Customer
	CartTotal decimal.Decimal
}

// WebhookEvent is published for event types without a built-in handler.
type WebhookEvent struct {
	Name string
	Body []byte
}
