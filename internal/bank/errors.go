package bank

import "errors"

// ErrInvalidInput indicates malformed or missing request fields
// (non-positive amount, bad email, short password).
var ErrInvalidInput = errors.New("invalid input")

// ErrInsufficientFunds indicates a debit exceeding the available balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidCredentials indicates a failed login attempt. It deliberately
// does not distinguish an unknown email from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")
