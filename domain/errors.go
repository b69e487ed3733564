package domain

import "errors"

var (
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
	ErrPlayerNotFound       = errors.New("player-not-found")
)

// Ledger errors
var (
	ErrInsufficientFunds = errors.New("insufficient-funds")
	ErrInvalidAmount     = errors.New("invalid-amount")
)
