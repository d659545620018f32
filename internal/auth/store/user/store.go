// Package user persists accounts. Every implementation returns sentinel errors:
// ErrNotFound for missing users and *sentinel.ConflictError on unique email or Google ID.
// Update writes profile fields only; is_active, last_login and token_version each have a
// dedicated single-field write so concurrent callers cannot undo each other.
// RecordLogin returns ErrStale when the account is deactivated.
package user

import (
	id "schoolbridge/pkg/domain"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Role     id.Role
	SchoolID *id.SchoolID
	IDs      []id.UserID
}
