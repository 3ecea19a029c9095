package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrRunNotFound       = fmt.Errorf("%w: run", ErrNotFound)
	ErrCandidateNotFound = fmt.Errorf("%w: candidate", ErrNotFound)
	ErrVerdictNotFound   = fmt.Errorf("%w: verdict", ErrNotFound)

	// Validation errors
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidAnchor     = errors.New("invalid anchor")
	ErrAnchorOverlap     = errors.New("anchor spans overlap")
	ErrInvalidFormula    = errors.New("unknown classing formula")
	ErrInvalidSchedule   = errors.New("invalid schedule configuration")
	ErrInvalidGateConfig = errors.New("invalid gate configuration")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
	ErrSeedMismatch     = errors.New("seed mismatch")
	ErrHashMismatch     = errors.New("hash mismatch")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidCiphertext) ||
		errors.Is(err, ErrInvalidAnchor) ||
		errors.Is(err, ErrAnchorOverlap) ||
		errors.Is(err, ErrInvalidFormula) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvalidGateConfig)
}

func IsDeterminismError(err error) bool {
	return errors.Is(err, ErrNonDeterministic) ||
		errors.Is(err, ErrSeedMismatch) ||
		errors.Is(err, ErrHashMismatch)
}
