package service

import (
	"errors"

	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
)

const invalidTokenMessage = "invalid or expired activation token"

// errInvalidToken is deliberately uniform: callers cannot tell unknown, expired,
// revoked and already-used tokens apart.
func errInvalidToken() error {
	return dErrors.New(dErrors.CodeBadRequest, invalidTokenMessage)
}

func isTokenConflict(err error) bool {
	var conflict *sentinel.ConflictError
	return errors.As(err, &conflict) && conflict.Field == "token"
}

// translateStoreError maps store sentinels to domain errors for lookups by ID.
func translateStoreError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "invitation not found")
	case errors.Is(err, sentinel.ErrStale):
		return dErrors.New(dErrors.CodeConflict, "invitation changed concurrently")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
