// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Feed errors.
	ErrEmptyFeed      = errors.New("source feed returned no accounts")
	ErrNoAccountMatch = errors.New("no ledger account with matching name")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidDate    = errors.New("invalid date")

	// Ledger errors.
	ErrLedgerConnection = errors.New("ledger connection failed")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("ledger rejected credentials")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// InputError reports a raw feed record that cannot be normalized.
// It is fatal for the run.
type InputError struct {
	Err     error
	Account string
	Field   string
	Value   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("account %q: %s %q: %v", e.Account, e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// MutationError reports a single ledger mutation that failed.
// It is logged and recorded, never fatal.
type MutationError struct {
	Err           error
	Op            string
	TransactionID string
}

func (e *MutationError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.TransactionID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
