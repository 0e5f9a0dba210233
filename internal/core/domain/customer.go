package domain

import "time"

// Customer is a storefront account that owns a wallet.
type Customer struct {
	ID            int64     `json:"user_id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone"`
	PasswordHash  string    `json:"-"`
	WalletLocked  bool      `json:"locked"`
	POSOriginated bool      `json:"pos_originated"`
	CreatedAt     time.Time `json:"registered"`
}

// DisplayName joins first and last name, falling back to the email.
func (c *Customer) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.LastName != "":
		return c.LastName
	default:
		return c.Email
	}
}
