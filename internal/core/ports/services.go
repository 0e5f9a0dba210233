package ports

import (
	"context"
	"time"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/shopspring/decimal"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// Bearer token roles.
const (
	RoleAdmin      = "admin"
	RoleStorefront = "storefront"
)

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(subject string, role string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
	Role    string
}

// AuthService authenticates storefront customers and issues operator tokens.
type AuthService interface {
	// Login returns a storefront token whose subject is the customer id.
	Login(ctx context.Context, email, password string) (string, time.Time, error)
	IssueToken(subject, role string) (string, time.Time, error)
}

// MetricsRecorder receives operational counters.
type MetricsRecorder interface {
	RemoteCall(op, outcome string, elapsed time.Duration)
	WebhookEvent(event, outcome string)
	SyncAttempt(outcome string)
}

// AuditService records POS-initiated mutations.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// ConfigProvider loads the merged integration config for one request.
type ConfigProvider interface {
	Load(ctx context.Context) (*domain.IntegrationConfig, error)
}

// CredentialManager issues and checks the API key / signing secret pair.
type CredentialManager interface {
	Generate(ctx context.Context) (*domain.Credentials, error)
	Revoke(ctx context.Context) error
	// Current returns the decrypted active pair, or nil when none exists.
	Current(ctx context.Context) (*domain.Credentials, error)
	// ValidateKey compares in constant time. It fails with a not-configured
	// error when no active key exists.
	ValidateKey(ctx context.Context, provided string) (bool, error)
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) bool
}

// --- Reconciliation ---

// InboundEntry is a credit or debit requested by the POS.
type InboundEntry struct {
	Customer  *domain.Customer
	Type      domain.TransactionType
	Amount    decimal.Decimal
	Reference string
	Details   string
	Origin    domain.Origin
	Terminal  string
	// ReportedBalance is the POS-side balance carried by the event, if any.
	ReportedBalance *decimal.Decimal
}

// InboundResult tells the caller whether a new transaction was created.
type InboundResult struct {
	Transaction *domain.WalletTransaction
	Duplicate   bool
}

// ReconciliationEngine routes balance reads and writes to the authoritative ledger.
type ReconciliationEngine interface {
	LocalBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	// RecordLocal writes a native transaction and notifies listeners.
	RecordLocal(ctx context.Context, entry domain.LedgerEntry) (*domain.WalletTransaction, error)
	// ApplyInbound writes a POS-originated transaction exactly once per reference.
	ApplyInbound(ctx context.Context, cfg *domain.IntegrationConfig, entry InboundEntry) (*InboundResult, error)

	CachedBalance(ctx context.Context, userID int64) (decimal.Decimal, bool, error)
	RemoteBalance(ctx context.Context, cfg *domain.IntegrationConfig, customer *domain.Customer) (decimal.Decimal, error)
	RemoteDebit(ctx context.Context, cfg *domain.IntegrationConfig, customer *domain.Customer, req RemoteEntryRequest, knownBalance *decimal.Decimal) (*RemoteEntryResult, error)
	RemoteCredit(ctx context.Context, cfg *domain.IntegrationConfig, customer *domain.Customer, req RemoteEntryRequest) (*RemoteEntryResult, error)

	// SyncTransaction pushes one native local transaction to the POS and
	// records the outcome on its meta.
	SyncTransaction(ctx context.Context, transactionID int64) error
}

// --- Customer wallet page ---

// Wallet history sources.
const (
	HistorySourcePOS   = "pos"
	HistorySourceLocal = "local"
)

// WalletEntry is one row of the history shown on the wallet page.
type WalletEntry struct {
	ID      string
	Type    string
	Amount  decimal.Decimal
	Details string
	Date    string
}

// WalletView is what the customer sees on the wallet page.
type WalletView struct {
	Customer *domain.Customer
	Balance  decimal.Decimal
	Currency string
	SSoT     bool
	// Degraded is set when the POS could not be reached and Balance is the
	// last known value instead of a fresh one.
	Degraded      bool
	HistorySource string
	History       []WalletEntry
}

// WalletViewer reads wallet state from whichever ledger is authoritative.
type WalletViewer interface {
	WalletView(ctx context.Context, customerID int64) (*WalletView, error)
	// RemoteCustomer fetches the POS profile of a customer.
	RemoteCustomer(ctx context.Context, email string) (*RemoteCustomer, error)
}

// --- Webhook ingress ---

// WebhookResult is the JSON body and status returned to the POS.
type WebhookResult struct {
	Status        int
	Message       string
	TransactionID *int64
	UserID        *int64
	Version       string
}

// WebhookProcessor handles a verified webhook body.
type WebhookProcessor interface {
	Process(ctx context.Context, body []byte) (*WebhookResult, error)
}

// --- Checkout ---

// PaymentResult reports a successful order payment.
type PaymentResult struct {
	Order         *domain.Order
	TransactionID string
	Reference     string
	SSoT          bool
}

// RefundResult reports a successful refund.
type RefundResult struct {
	Order         *domain.Order
	TransactionID string
	Reference     string
	SSoT          bool
}

// CheckoutService is the order payment state machine.
type CheckoutService interface {
	IsAvailable(ctx context.Context, customerID int64, cartTotal decimal.Decimal) (bool, error)
	ProcessPayment(ctx context.Context, orderID int64) (*PaymentResult, error)
	// CompletePayment takes the local debit for a paid order at most once.
	CompletePayment(ctx context.Context, orderID int64) (*domain.Order, error)
	ProcessRefund(ctx context.Context, orderID int64, amount decimal.Decimal, reason string) (*RefundResult, error)
	ProcessRenewal(ctx context.Context, orderID int64) (*PaymentResult, error)
}

// --- POS REST surface ---

// CustomerLookup identifies a customer by email or id.
type CustomerLookup struct {
	Email  string
	UserID int64
	Phone  string
}

// POSEntryRequest is a credit or debit submitted over the REST surface.
type POSEntryRequest struct {
	Lookup    CustomerLookup
	Amount    decimal.Decimal
	Reference string
	Note      string
}

// QRPayRequest is submitted by a POS terminal after scanning a customer's code.
type QRPayRequest struct {
	QRData    string
	Amount    decimal.Decimal
	Terminal  string
	Reference string
}

// BalanceView is the balance of one customer.
type BalanceView struct {
	Customer *domain.Customer
	Balance  decimal.Decimal
	Currency string
}

// EntryView is the outcome of a POS credit, debit or QR payment.
type EntryView struct {
	Customer    *domain.Customer
	Transaction *domain.WalletTransaction
	NewBalance  decimal.Decimal
	Currency    string
	Reference   string
	Terminal    string
	Duplicate   bool
}

// TransactionPage is one page of local history.
type TransactionPage struct {
	Transactions []domain.WalletTransaction
	Total        int64
	Page         int
	PerPage      int
	TotalPages   int
}

// StatusView describes the integration for the POS health check.
type StatusView struct {
	Version       string
	POSConfigured bool
	SSoT          bool
	Currency      string
	WebhookURL    string
	Connection    string
	ConnectionErr string
	CheckedAt     time.Time
}

// POSService implements the endpoints the POS calls.
type POSService interface {
	Balance(ctx context.Context, lookup CustomerLookup) (*BalanceView, error)
	Credit(ctx context.Context, req POSEntryRequest) (*EntryView, error)
	Debit(ctx context.Context, req POSEntryRequest) (*EntryView, error)
	Transactions(ctx context.Context, email string, page, perPage int) (*TransactionPage, error)
	LookupCustomer(ctx context.Context, lookup CustomerLookup) (*BalanceView, error)
	QRPay(ctx context.Context, req QRPayRequest) (*EntryView, error)
	Status(ctx context.Context) (*StatusView, error)
}

// QRService issues and verifies QR payment tokens.
type QRService interface {
	Issue(ctx context.Context, customerID int64) (*domain.QRPaymentToken, error)
	Verify(ctx context.Context, raw string) (*domain.QRPaymentToken, error)
}

// SyncWorker drains the outbound sync outbox.
type SyncWorker interface {
	Run(ctx context.Context)
	ProcessDue(ctx context.Context) (int, error)
}
