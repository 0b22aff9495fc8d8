package models

import "time"

// User is a bank customer (or the admin) as stored in the document.
// PasswordHash is persisted but stripped from API responses via Redacted.
type User struct {
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	PasswordHash    string            `json:"password_hash,omitempty"`
	AccountNumber   string            `json:"account_number"`
	Balance         float64           `json:"balance"`
	CryptoBalance   float64           `json:"crypto_balance"`
	MinedCoins      float64           `json:"mined_coins"`
	CryptoAddresses map[string]string `json:"crypto_addresses"`
	Role            string            `json:"role"`
	CreatedAt       time.Time         `json:"created_at"`
	LastLogin       *time.Time        `json:"last_login"`
	Documents       map[string]string `json:"documents"`
	Address         string            `json:"address"`
}

// FullName joins the name fields for receipts and notifications.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Redacted returns a copy safe to hand to API callers.
func (u User) Redacted() User {
	u.PasswordHash = ""
	return u
}
