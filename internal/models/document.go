package models

import "time"

// SchemaVersion identifies the persisted document layout. Loading a
// document with a different version fails as corrupt rather than being
// silently reinterpreted.
const SchemaVersion = 1

// Settings holds the admin-tunable knobs and the static exchange-rate table.
type Settings struct {
	MiningEnabled bool               `json:"mining_enabled"`
	DailyCredit   float64            `json:"daily_credit"`
	MiningReward  float64            `json:"mining_reward"`
	ExchangeRates map[string]float64 `json:"exchange_rates"`
}

// Session records which user is currently authenticated. Kept in the
// document for layout compatibility; request authorization is token-based.
type Session struct {
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Document is the whole persisted state: every store reads and writes it
// as a unit.
type Document struct {
	SchemaVersion  int           `json:"schema_version"`
	Users          []User        `json:"users"`
	Transactions   []Transaction `json:"transactions"`
	Settings       Settings      `json:"settings"`
	CurrentSession *Session      `json:"current_session"`
}

// DefaultSettings mirrors the initial configuration the application ships
// with: mining off, 10 units of daily credit, half a coin per reward.
func DefaultSettings() Settings {
	return Settings{
		MiningEnabled: false,
		DailyCredit:   10,
		MiningReward:  0.5,
		ExchangeRates: map[string]float64{
			"USD": 1,
			"EUR": 0.92,
			"GBP": 0.79,
			"NGN": 1550,
			"BTC": 0.000015,
			"ETH": 0.00031,
		},
	}
}

// NewDocument returns an empty, versioned document with default settings.
func NewDocument() *Document {
	return &Document{
		SchemaVersion: SchemaVersion,
		Users:         []User{},
		Transactions:  []Transaction{},
		Settings:      DefaultSettings(),
	}
}

// FindUser returns a pointer into the document's user slice, or nil.
func (d *Document) FindUser(email string) *User {
	for i := range d.Users {
		if d.Users[i].Email == email {
			return &d.Users[i]
		}
	}
	return nil
}

// FindTransactionByKey locates a transaction recorded under an idempotency
// key, or nil when the key has not been seen.
func (d *Document) FindTransactionByKey(key string) *Transaction {
	if key == "" {
		return nil
	}
	for i := range d.Transactions {
		if d.Transactions[i].IdempotencyKey == key {
			return &d.Transactions[i]
		}
	}
	return nil
}
