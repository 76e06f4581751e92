package saleledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("saleledger: not found")
	ErrAlreadyExists = errors.New("saleledger: already exists")
	ErrInvalidInput  = errors.New("saleledger: invalid input")

	// Sale errors. The reason strings match the ones buyers see on-chain.
	ErrSaleNotStarted      = errors.New("the sale isn't started")
	ErrSaleOver            = errors.New("the sale is over")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrNoPrice             = errors.New("saleledger: no price outside an active phase")

	// Authorization errors
	ErrNotOwner = errors.New("not an owner")

	// Token and royalty errors
	ErrNonexistentToken = errors.New("nonexistent token")
	ErrInvalidRoyalty   = errors.New("saleledger: royalty fraction exceeds 10000 bps")

	// Payment errors
	ErrTransferFailed = errors.New("saleledger: value transfer failed")
	ErrReentrantCall  = errors.New("saleledger: re-entrant call during value transfer")

	// Engine errors
	ErrNotStarted     = errors.New("saleledger: ledger not started")
	ErrConfigMismatch = errors.New("saleledger: stored sale terms differ from configuration")

	// Journal errors
	ErrJournalBufferFull = errors.New("saleledger: journal buffer full")

	// Store errors
	ErrStateConflict   = errors.New("saleledger: sale state version conflict")
	ErrStoreNotReady   = errors.New("saleledger: store not ready")
	ErrStoreClosed     = errors.New("saleledger: store is closed")
	ErrMigrationFailed = errors.New("saleledger: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("saleledger: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "saleledger: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("saleledger: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNonexistentToken)
}

// IsSaleError returns true if the error rejects a purchase for sale-state reasons.
func IsSaleError(err error) bool {
	return errors.Is(err, ErrSaleNotStarted) ||
		errors.Is(err, ErrSaleOver) ||
		errors.Is(err, ErrInsufficientPayment) ||
		errors.Is(err, ErrNoPrice)
}

// IsAuthError returns true if the caller lacked the owner role.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotOwner)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStateConflict) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrJournalBufferFull)
}
