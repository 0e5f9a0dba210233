package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QRSource marks payloads issued by this service.
const QRSource = "wallet_bridge"

// QRFreshnessWindow is how long an issued QR payload stays valid.
const QRFreshnessWindow = 300 * time.Second

// QRPaymentToken is the signed payload a customer shows at the POS terminal.
// It is never stored.
type QRPaymentToken struct {
	Source    string          `json:"source"`
	Email     string          `json:"email"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Timestamp int64           `json:"timestamp"`
	Token     string          `json:"token"`
}

// Expired reports whether the payload is older than the freshness window.
func (q *QRPaymentToken) Expired(now time.Time) bool {
	return now.Sub(time.Unix(q.Timestamp, 0)) > QRFreshnessWindow
}
