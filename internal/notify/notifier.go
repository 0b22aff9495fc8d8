package notify

import (
	log "github.com/sirupsen/logrus"

	"github.com/globalbank/globalbank-be/internal/models"
)

// Notifier delivers customer notifications. Calls are fire-and-forget: the
// core never consults a result.
type Notifier interface {
	Welcome(user models.User)
	CreditAlert(user models.User, tx models.Transaction)
}

// LogNotifier "sends" emails by writing them to the log, which is all the
// demo ever did.
type LogNotifier struct{}

// NewLogNotifier creates the logging notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Welcome logs the welcome email for a freshly registered user.
func (n *LogNotifier) Welcome(user models.User) {
	log.WithFields(log.Fields{
		"to":             user.Email,
		"name":           user.FullName(),
		"account_number": user.AccountNumber,
		"subject":        "Welcome to Global Bank!",
	}).Info("welcome email sent")
}

// CreditAlert logs the credit notification for a completed credit.
func (n *LogNotifier) CreditAlert(user models.User, tx models.Transaction) {
	log.WithFields(log.Fields{
		"to":       user.Email,
		"amount":   tx.Amount,
		"currency": tx.Currency,
		"method":   tx.Method,
		"subject":  "Account Credit Alert",
	}).Info("credit alert sent")
}
