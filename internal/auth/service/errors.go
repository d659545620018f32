package service

import (
	"errors"

	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/secrets"
)

var hashPassword = secrets.Hash

func errInvalidRefreshToken() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
}

func errDeactivated() error {
	return dErrors.New(dErrors.CodeForbidden, "account is deactivated")
}

func errRoleMismatch() error {
	return dErrors.New(dErrors.CodeBadRequest, "role does not match this account")
}

// translateUserWriteError maps user store write failures. Unique violations surface as 409
// with the colliding field in details.
func translateUserWriteError(err error, msg string) error {
	var conflict *sentinel.ConflictError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &conflict):
		message := "email already registered"
		if conflict.Field == "googleId" {
			message = "google account already linked to another user"
		}
		return dErrors.WithDetails(dErrors.CodeConflict, message, map[string]string{conflict.Field: "already exists"})
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
