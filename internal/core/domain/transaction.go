package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a wallet movement.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// Valid reports whether t is one of the known directions.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// Origin tags a transaction with the system that caused it.
type Origin string

const (
	OriginNative  Origin = ""
	OriginPOS     Origin = "pos"
	OriginPOSSSoT Origin = "pos_ssot"
	OriginPOSQR   Origin = "pos_qr"
)

// IsRemote reports whether the transaction was caused by the POS and must
// therefore never be pushed back to it.
func (o Origin) IsRemote() bool {
	return o == OriginPOS || o == OriginPOSSSoT || o == OriginPOSQR
}

// Transaction meta keys.
const (
	MetaOrigin            = "origin"
	MetaExternalReference = "external_reference"
	MetaSyncStatus        = "sync_status"
	MetaSyncError         = "sync_error"
	MetaPOSTransactionID  = "pos_transaction_id"
	MetaTerminal          = "pos_terminal"
	MetaOrderID           = "order_id"
)

// SyncStatus is the outcome of pushing a local transaction to the POS.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// WalletTransaction is an immutable ledger entry. Only Meta may change after creation.
type WalletTransaction struct {
	ID        int64             `json:"transaction_id"`
	UserID    int64             `json:"user_id"`
	Type      TransactionType   `json:"type"`
	Amount    decimal.Decimal   `json:"amount"`
	Balance   decimal.Decimal   `json:"balance"`
	Currency  string            `json:"currency"`
	Details   string            `json:"details"`
	CreatedAt time.Time         `json:"date"`
	Meta      map[string]string `json:"-"`
}

// Origin returns the origin tag, OriginNative when absent.
func (t *WalletTransaction) Origin() Origin {
	return Origin(t.Meta[MetaOrigin])
}

// ExternalReference returns the dedup key attached to the transaction, if any.
func (t *WalletTransaction) ExternalReference() string {
	return t.Meta[MetaExternalReference]
}

// LedgerEntry is the input to the Ledger Store's credit/debit primitive.
// Meta is persisted in the same database transaction as the ledger row.
type LedgerEntry struct {
	UserID   int64
	Type     TransactionType
	Amount   decimal.Decimal
	Currency string
	Details  string
	Meta     map[string]string
}
