package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Remote ledger failures that happen before any request is sent.
var (
	ErrRemoteNotConfigured = errors.New("pos integration is not configured")
	ErrInvalidRemoteInput  = errors.New("invalid remote request")
)

// TransportError is a network-level failure (DNS, connect, timeout).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pos %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a POS response with status >= 400.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("pos %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

// ClientSide reports whether the POS rejected the request itself, which makes
// its message safe to relay.
func (e *RemoteError) ClientSide() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// RemoteEntryRequest is the body of a remote debit or credit.
type RemoteEntryRequest struct {
	Email       string
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// RemoteBalance is the decoded GET /balance response.
type RemoteBalance struct {
	Email    string
	Balance  decimal.Decimal
	Currency string
	Raw      json.RawMessage
}

// RemoteEntryResult is the decoded debit/credit response. HasBalance is false
// when the POS did not report the resulting balance.
type RemoteEntryResult struct {
	TransactionID string
	Balance       decimal.Decimal
	HasBalance    bool
	Raw           json.RawMessage
}

// RemoteTransaction is one row of the remote history.
type RemoteTransaction struct {
	ID      string          `json:"transaction_id"`
	Type    string          `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
	Details string          `json:"details"`
	Date    string          `json:"date"`
}

// RemoteTransactionPage is the decoded GET /transactions response.
type RemoteTransactionPage struct {
	Transactions []RemoteTransaction
	Total        int64
	Page         int
	Raw          json.RawMessage
}

// RemoteCustomer is the decoded GET /customer response.
type RemoteCustomer struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Balance   decimal.Decimal
	Raw       json.RawMessage
}

// RemoteStatus is the decoded GET /status response.
type RemoteStatus struct {
	Status  string
	Version string
	Raw     json.RawMessage
}

// RemoteLedger is the POS wallet-connector API.
type RemoteLedger interface {
	GetBalance(ctx context.Context, email string) (*RemoteBalance, error)
	Debit(ctx context.Context, req RemoteEntryRequest) (*RemoteEntryResult, error)
	Credit(ctx context.Context, req RemoteEntryRequest) (*RemoteEntryResult, error)
	ListTransactions(ctx context.Context, email string, limit, page int) (*RemoteTransactionPage, error)
	GetCustomer(ctx context.Context, email string) (*RemoteCustomer, error)
	Ping(ctx context.Context) (*RemoteStatus, error)
}

// RemoteLedgerProvider hands out a client built for the given configuration.
type RemoteLedgerProvider interface {
	// Client returns ErrRemoteNotConfigured when cfg cannot reach the POS.
	Client(ctx context.Context, cfg *domain.IntegrationConfig) (RemoteLedger, error)
	// Invalidate drops any cached client, e.g. after credential rotation.
	Invalidate()
}
