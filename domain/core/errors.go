package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Lookup errors
	ErrNotFound       = errors.New("resource not found")
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)

	// Input errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrLengthMismatch   = fmt.Errorf("%w: column length mismatch", ErrInvalidInput)
	ErrNotNumeric       = fmt.Errorf("%w: column is not numeric", ErrInvalidInput)
	ErrNotBinary        = fmt.Errorf("%w: target is not binary", ErrInvalidInput)
	ErrInvalidBinCount  = fmt.Errorf("%w: bin count must be at least 2", ErrInvalidInput)
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Fit errors
	ErrFitFailed        = errors.New("model fit failed")
	ErrSingularMatrix   = fmt.Errorf("%w: singular matrix", ErrFitFailed)
	ErrNotConverged     = fmt.Errorf("%w: did not converge", ErrFitFailed)
	ErrDegenerateTarget = fmt.Errorf("%w: degenerate target", ErrFitFailed)
	ErrMissingValues    = fmt.Errorf("%w: design matrix contains missing values", ErrFitFailed)
	ErrNonFinite        = fmt.Errorf("%w: non-finite estimate", ErrFitFailed)
)

// NewColumnNotFoundError reports a missing column by name
func NewColumnNotFoundError(name string) error {
	return fmt.Errorf("%w %q", ErrColumnNotFound, name)
}

// NewFitError wraps a fit failure with the combination it belongs to
func NewFitError(key string, err error) error {
	return fmt.Errorf("fit %s: %w", key, err)
}

// IsNotFoundError reports whether err is a lookup failure
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFitError reports whether err is any kind of model fit failure
func IsFitError(err error) bool {
	return errors.Is(err, ErrFitFailed)
}

// IsInputError reports whether err is caused by malformed input
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInsufficientData)
}
