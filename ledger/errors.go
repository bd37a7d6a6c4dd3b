/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All error types in one place. The API layer maps these to HTTP status
  codes; nothing in this package logs or swallows a failure.

ERROR CATEGORIES:
  1. Validation errors - malformed input (non-positive amount, transfer
     missing a target account)
  2. Not-found errors - a referenced document no longer exists
  3. Store errors - the underlying document store call failed

CONSISTENCY DRIFT:
  Drift (balance diverging from the transaction set after a partial
  failure) is not an error value. RecalculateBalance surfaces it as a
  reported delta and repairs it.

SEE ALSO:
  - lifecycle.go: raises validation and not-found errors
  - api/handlers.go: maps these errors to HTTP responses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input fails a business rule.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced document no longer exists,
	// e.g. a transaction edited after being deleted elsewhere.
	ErrNotFound = errors.New("not found")

	// ErrStore is returned when the underlying document store call failed.
	ErrStore = errors.New("store operation failed")

	// ErrBillPaid is returned when mutating a card charge whose billing
	// cycle has already been paid. Unpay the bill first.
	ErrBillPaid = errors.New("billing cycle already paid")

	// ErrAlreadyPaid is returned when paying a bill that is already paid.
	ErrAlreadyPaid = errors.New("bill already paid")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field broke which rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing document.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Collection, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps a driver-level failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStore }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing document.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError reports whether the error is the caller's fault and should
// not be retried as-is.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrBillPaid) ||
		errors.Is(err, ErrAlreadyPaid)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func notFoundErr(collection string, id string) error {
	return &NotFoundError{Collection: collection, ID: id}
}
