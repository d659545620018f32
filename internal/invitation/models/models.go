package models

import (
	"time"

	id "schoolbridge/pkg/domain"
)

// Status is the stored lifecycle state of an invitation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
	StatusFailed   Status = "failed"
	StatusRevoked  Status = "revoked"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusExpired, StatusFailed, StatusRevoked:
		return true
	}
	return false
}

// Invitation binds an email and role to a single-use activation token.
// Token never leaves the service layer; use View for output.
type Invitation struct {
	ID          id.InvitationID
	Email       string
	Role        id.Role
	SchoolID    *id.SchoolID
	Token       string
	Status      Status
	ExpiresAt   time.Time
	CreatedBy   id.UserID
	ErrorDetail string
	AcceptedAt  *time.Time
	LastSentAt  *time.Time
	SendCount   int
	CreatedAt   time.Time
}

// IsUsed reports whether the token has been consumed.
func (i *Invitation) IsUsed() bool {
	return i.Status == StatusAccepted
}

// IsActionable reports whether the token can still activate an account.
func (i *Invitation) IsActionable(now time.Time) bool {
	return i.Status == StatusPending && now.Before(i.ExpiresAt)
}

// EffectiveStatus reports pending invitations past their expiry as expired.
func (i *Invitation) EffectiveStatus(now time.Time) Status {
	if i.Status == StatusPending && !now.Before(i.ExpiresAt) {
		return StatusExpired
	}
	return i.Status
}

// View is the serialized invitation. It has no token field.
type View struct {
	ID          id.InvitationID `json:"id"`
	Email       string          `json:"email"`
	Role        id.Role         `json:"role"`
	SchoolID    *id.SchoolID    `json:"school_id,omitempty"`
	Status      Status          `json:"status"`
	IsUsed      bool            `json:"isUsed"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	CreatedBy   id.UserID       `json:"createdBy"`
	ErrorDetail string          `json:"errorDetail,omitempty"`
	AcceptedAt  *time.Time      `json:"acceptedAt,omitempty"`
	LastSentAt  *time.Time      `json:"lastSentAt,omitempty"`
	SendCount   int             `json:"sendCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func ToView(i *Invitation, now time.Time) *View {
	return &View{
		ID:          i.ID,
		Email:       i.Email,
		Role:        i.Role,
		SchoolID:    i.SchoolID,
		Status:      i.EffectiveStatus(now),
		IsUsed:      i.IsUsed(),
		ExpiresAt:   i.ExpiresAt,
		CreatedBy:   i.CreatedBy,
		ErrorDetail: i.ErrorDetail,
		AcceptedAt:  i.AcceptedAt,
		LastSentAt:  i.LastSentAt,
		SendCount:   i.SendCount,
		CreatedAt:   i.CreatedAt,
	}
}

// ListFilter scopes invitation listings. Empty fields match everything.
type ListFilter struct {
	Roles    []id.Role
	SchoolID *id.SchoolID
	Status   Status
}

// Preview is what a valid token reveals for client pre-fill.
type Preview struct {
	Email    string       `json:"email"`
	Role     id.Role      `json:"role"`
	SchoolID *id.SchoolID `json:"school_id,omitempty"`
}
