package ledger

import "errors"

// ErrInsufficientFunds is returned when a debit would drive an account's balance below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")
