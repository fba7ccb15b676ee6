// Package apperror defines the error kinds shared by every service.
//
// Domain code wraps one of the sentinels below with a human-readable message,
// e.g. fmt.Errorf("member not found with ID %d: %w", id, apperror.ErrNotFound),
// and the HTTP layer classifies the result with errors.Is.
package apperror

import "errors"

var (
	// ErrNotFound is returned when a member, membership, workout or exercise is absent.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a member already carries a membership.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict is returned when an aggregate changed underneath a read-modify-write.
	ErrConflict = errors.New("concurrent modification")
	// ErrInvalid is returned for malformed or incomplete input.
	ErrInvalid = errors.New("invalid input")
	// ErrUnavailable is returned when an upstream service cannot be reached.
	ErrUnavailable = errors.New("upstream unavailable")
)
