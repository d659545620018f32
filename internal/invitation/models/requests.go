package models

import (
	"strings"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/validation"
	s "schoolbridge/pkg/string"
)

// InviteEntry is one row of a batch invitation request.
type InviteEntry struct {
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	SchoolID *string `json:"school_id,omitempty"`
}

// CreateRequest is the body of POST /invitations and POST /auth/invitations.
// Entries are validated one by one by the service so a bad row does not fail the batch.
type CreateRequest struct {
	Users []InviteEntry `json:"users"`
}

func (r *CreateRequest) Normalize() {
	for i := range r.Users {
		r.Users[i].Email = s.NormalizeEmail(r.Users[i].Email)
		r.Users[i].Role = strings.TrimSpace(r.Users[i].Role)
		if r.Users[i].SchoolID != nil {
			trimmed := strings.TrimSpace(*r.Users[i].SchoolID)
			if trimmed == "" {
				r.Users[i].SchoolID = nil
			} else {
				r.Users[i].SchoolID = &trimmed
			}
		}
	}
}

func (r *CreateRequest) Validate() error {
	if len(r.Users) == 0 {
		return dErrors.WithDetails(dErrors.CodeValidation, "at least one user is required",
			map[string]string{"users": "at least one user is required"})
	}
	return validation.CheckSliceCount("users", len(r.Users), validation.MaxInvitationsPerBatch)
}

// Entry is a parsed invite row.
type Entry struct {
	Email    string
	Role     id.Role
	SchoolID *id.SchoolID
}

// EntryStatus is the per-row outcome of a batch.
type EntryStatus string

const (
	EntryCreated EntryStatus = "created"
	EntryFailed  EntryStatus = "failed"
	EntryError   EntryStatus = "error"
)

// EntryResult reports what happened to one invite row. EntryFailed means the invitation
// was stored but the email could not be sent; EntryError means nothing was stored.
type EntryResult struct {
	Email        string           `json:"email"`
	Role         string           `json:"role"`
	Status       EntryStatus      `json:"status"`
	InvitationID *id.InvitationID `json:"invitationId,omitempty"`
	ExpiresAt    string           `json:"expiresAt,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Persisted reports whether the row produced a stored invitation.
func (r EntryResult) Persisted() bool {
	return r.InvitationID != nil
}

// BatchResult wraps per-entry results as "credentials".
type BatchResult struct {
	Credentials []EntryResult `json:"credentials"`
	Created     int           `json:"created"`
	Failed      int           `json:"failed"`
}
