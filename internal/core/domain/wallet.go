package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the per-customer running balance maintained by the Ledger Store.
type Wallet struct {
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BalanceCache is the last balance the POS reported for a customer.
// It is never authoritative.
type BalanceCache struct {
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AmountScale is the number of decimal places the ledger stores.
const AmountScale = 2

// ValidAmount reports whether a is positive and representable at AmountScale
// without rounding. "10.50" and "10.500" pass, "0.004" and "10.005" do not.
func ValidAmount(a decimal.Decimal) bool {
	return a.IsPositive() && a.Equal(a.Round(AmountScale))
}
