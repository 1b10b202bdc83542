package domain

import (
	"errors"
	"fmt"
)

var (
	// Account errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrInvalidAccountID = errors.New("invalid account id")
	ErrNegativeBalance  = errors.New("balance cannot be negative")

	// Transfer errors
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Side names the participant of a transfer.
type Side string

const (
	SideSender    Side = "sender"
	SideRecipient Side = "recipient"
)

// AccountNotFoundError reports which participant of a transfer did not resolve.
// It matches ErrAccountNotFound with errors.Is.
type AccountNotFoundError struct {
	Side      Side
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("%s account %q not found", e.Side, e.AccountID)
}

func (e *AccountNotFoundError) Unwrap() error {
	return ErrAccountNotFound
}
