// Package invoice renders plain-text receipts for ledger entries. The
// HTML/PDF presentation of the original invoice modal is out of scope;
// this keeps only the data a receipt needs.
package invoice

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/globalbank/globalbank-be/internal/models"
)

const receiptTemplate = `GLOBAL BANK — TRANSACTION RECEIPT
=================================

To:       {{.Name}}
Account:  {{.AccountNumber}}
Email:    {{.Email}}

Description:  {{.Description}}
Date:         {{.Date}}
Method:       {{.Method}}
Amount:       {{.Sign}}{{.Amount}} {{.Currency}}
Status:       {{.Status}}
Reference:    {{.Reference}}

Thank you for banking with Global Bank.
This is a computer-generated receipt. No signature required.
`

var tmpl = template.Must(template.New("receipt").Parse(receiptTemplate))

type receiptData struct {
	Name          string
	AccountNumber string
	Email         string
	Description   string
	Date          string
	Method        string
	Sign          string
	Amount        string
	Currency      string
	Status        string
	Reference     string
}

// Render produces the text receipt for a transaction and its owner.
func Render(tx models.Transaction, user models.User) (string, error) {
	sign := "+"
	if tx.Type == models.TxDebit {
		sign = "-"
	}
	amount := fmt.Sprintf("%.2f", tx.Amount)
	if models.IsCrypto(tx.Currency) {
		amount = fmt.Sprintf("%.8f", tx.Amount)
	}

	var sb strings.Builder
	err := tmpl.Execute(&sb, receiptData{
		Name:          user.FullName(),
		AccountNumber: user.AccountNumber,
		Email:         user.Email,
		Description:   tx.Description,
		Date:          tx.Date.Format("Jan 2, 2006 15:04"),
		Method:        tx.Method,
		Sign:          sign,
		Amount:        amount,
		Currency:      tx.Currency,
		Status:        tx.Status,
		Reference:     tx.ID,
	})
	if err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return sb.String(), nil
}
