package models

import "time"

// Transaction types.
const (
	TxCredit = "credit"
	TxDebit  = "debit"
)

// StatusCompleted is the only status the core ever writes; the field exists
// so the document can represent pending/failed entries imported from
// elsewhere.
const StatusCompleted = "completed"

// Transaction is an immutable ledger entry. The transaction log is the
// source of historical truth; user balances are denormalized from it.
type Transaction struct {
	ID             string    `json:"id"`
	UserEmail      string    `json:"user_email"`
	Type           string    `json:"type"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	Method         string    `json:"method"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	Date           time.Time `json:"date"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}
