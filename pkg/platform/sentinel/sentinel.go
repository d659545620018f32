// Package sentinel holds store-level errors. Stores return these (optionally
// wrapped) so services can translate them into domain errors exactly once.
package sentinel

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
	ErrStale       = errors.New("stale")
	ErrUnavailable = errors.New("unavailable")
)

// ConflictError names the unique field a write collided on.
// errors.Is(err, ErrConflict) holds for it.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already exists"
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
