package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify with errors.Is; anything else is internal.
var (
	ErrValidation           = errors.New("validation failed")
	ErrAvailabilityConflict = errors.New("availability conflict")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("not authorized")
)

var (
	// ErrStaleReservation is returned when a conditional status update finds the
	// reservation already moved on by a concurrent call.
	ErrStaleReservation = fmt.Errorf("%w: reservation was modified concurrently", ErrValidation)

	// ErrLedgerDrift marks a release larger than the committed quantity.
	ErrLedgerDrift = errors.New("ledger drift: release exceeds committed quantity")
)

// Validationf builds an error of kind ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unauthorizedf builds an error of kind ErrUnauthorized.
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// NotFoundf builds an error of kind ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// ConflictError identifies the resource and slot that could not hold the
// requested quantity.
type ConflictError struct {
	ResourceID string
	Date       string
	Slot       int
	Requested  int32
	Available  int32
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("availability conflict: resource %s on %s slot %d has %d available, %d requested",
		e.ResourceID, e.Date, e.Slot, e.Available, e.Requested)
}

func (e *ConflictError) Unwrap() error {
	return ErrAvailabilityConflict
}

// Expected marks conflicts as ordinary, retryable traffic for logging.
func (e *ConflictError) Expected() bool { return true }
