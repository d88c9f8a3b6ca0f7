// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	// ErrOversell is returned when a sell or edit would exceed the shares
	// owned by a holding. It is an expected, user-facing outcome.
	ErrOversell = errors.New("cannot sell more shares than owned")

	// ErrNotFound is returned when a referenced portfolio, holding or
	// transaction does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNoPriceData is returned when neither the last-trade nor the
	// bar-close source has a price for a symbol.
	ErrNoPriceData = errors.New("no price data available")

	// ErrPriceSourceUnavailable is returned when the market-data provider
	// failed or timed out. Recoverable via fallback.
	ErrPriceSourceUnavailable = errors.New("price source unavailable")

	// ErrConflict is returned when an optimistic-concurrency write conflict
	// was detected on a holding update. The caller may retry the operation.
	ErrConflict = errors.New("concurrent modification detected")

	ErrConfigInvalid = errors.New("invalid configuration")
	ErrDatabaseError = errors.New("database error")
)

// ConsistencyError reports a broken cross-entity invariant: negative
// remaining shares, or a mismatch between a holding's sold counter and the
// sum of its recorded sales. It must never be caught and ignored.
type ConsistencyError struct {
	HoldingID string
	Detail    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation [holding %s]: %s", e.HoldingID, e.Detail)
}

// NewConsistencyError creates a new ConsistencyError.
func NewConsistencyError(holdingID, detail string) *ConsistencyError {
	return &ConsistencyError{
		HoldingID: holdingID,
		Detail:    detail,
	}
}

// ProviderError represents an error from the market-data provider.
type ProviderError struct {
	Operation string
	Symbol    string
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("provider error [%s] %s: %v", e.Operation, e.Symbol, e.Err)
	}
	return fmt.Sprintf("provider error [%s]: %v", e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(operation, symbol string, err error) *ProviderError {
	return &ProviderError{
		Operation: operation,
		Symbol:    symbol,
		Err:       err,
	}
}

// ValidationError represents a validation error on caller input.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
