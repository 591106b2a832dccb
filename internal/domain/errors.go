package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountNotActive    = errors.New("account not active")
	ErrAccountNotEmpty     = errors.New("account balance must be zero to close")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")
	ErrAlreadyReversed     = errors.New("transaction is not reversible")
	ErrVersionConflict     = errors.New("account was modified concurrently")
	ErrBusy                = errors.New("account is locked by another operation")
)
