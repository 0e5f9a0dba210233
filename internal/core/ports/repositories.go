package ports

import (
	"context"
	"time"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerStore is the local wallet ledger. Getters return (nil, nil) when
// nothing matches.
type LedgerStore interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	// Record appends a credit or debit together with its meta in one
	// database transaction. A debit beyond the balance fails with
	// domain.ErrInsufficientFunds; a reused external reference fails with
	// domain.ErrDuplicateReference.
	Record(ctx context.Context, entry domain.LedgerEntry) (*domain.WalletTransaction, error)
	GetByID(ctx context.Context, id int64) (*domain.WalletTransaction, error)
	FindByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error)
	SetMeta(ctx context.Context, transactionID int64, meta map[string]string) error
	List(ctx context.Context, userID int64, page, perPage int) ([]domain.WalletTransaction, int64, error)
}

// CustomerRepository defines persistence operations for customers.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
}

// BalanceCacheRepository persists the last remote balance per customer.
type BalanceCacheRepository interface {
	Get(ctx context.Context, userID int64) (*domain.BalanceCache, error)
	Set(ctx context.Context, userID int64, balance decimal.Decimal) error
}

// OrderRepository reads and stamps storefront orders.
type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	// ReserveRefund atomically adds amount to the refunded total and bumps the
	// refund count. ok is false when the order total would be exceeded.
	ReserveRefund(ctx context.Context, id int64, amount decimal.Decimal) (order *domain.Order, ok bool, err error)
	// ReleaseRefund gives back the amount of a reservation whose refund failed.
	// The refund count is kept so references are never reused.
	ReleaseRefund(ctx context.Context, id int64, amount decimal.Decimal) error
}

// Storefront performs the side effects of a paid order.
type Storefront interface {
	ReduceStock(ctx context.Context, orderID int64) error
	EmptyCart(ctx context.Context, customerID int64) error
	AddOrderNote(ctx context.Context, orderID int64, note string) error
}

// StoredCredentials is the persisted form of domain.Credentials.
type StoredCredentials struct {
	APIKey           string
	SigningSecretEnc string
	GeneratedAt      time.Time
	RevokedAt        *time.Time
}

// CredentialRepository stores the single active credential pair.
type CredentialRepository interface {
	Get(ctx context.Context) (*StoredCredentials, error)
	Save(ctx context.Context, creds *StoredCredentials) error
}

// SyncJobRepository is the durable outbox for local→remote sync.
type SyncJobRepository interface {
	Enqueue(ctx context.Context, job *domain.SyncJob) error
	// ClaimDue leases up to limit due jobs so concurrent workers skip them.
	ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]domain.SyncJob, error)
	MarkDone(ctx context.Context, id uuid.UUID, attempt int) error
	Reschedule(ctx context.Context, id uuid.UUID, attempt int, nextRunAt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempt int, lastErr string) error
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// ReferenceLocker serializes work on one external reference across instances.
type ReferenceLocker interface {
	// Acquire returns false when another holder owns the reference.
	Acquire(ctx context.Context, reference string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, reference string) error
}
