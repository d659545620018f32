package models

import (
	"time"

	id "schoolbridge/pkg/domain"
)

// UserProfile is the sanitized user representation returned by every endpoint.
// It has no password, session, or token version fields.
type UserProfile struct {
	ID             id.UserID    `json:"id"`
	Email          string       `json:"email"`
	FullName       string       `json:"fullName"`
	FirstName      string       `json:"firstName"`
	LastName       string       `json:"lastName"`
	Phone          string       `json:"phone,omitempty"`
	Role           id.Role      `json:"role"`
	Provider       Provider     `json:"provider"`
	ProfilePicture string       `json:"profilePicture,omitempty"`
	IsVerified     bool         `json:"isVerified"`
	IsActive       bool         `json:"isActive"`
	LastLogin      *time.Time   `json:"lastLogin,omitempty"`
	SchoolID       *id.SchoolID `json:"schoolId,omitempty"`
	RoleProfile
	CreatedAt time.Time `json:"createdAt"`
}

// ToProfile sanitizes u for output.
func ToProfile(u *User) *UserProfile {
	if u == nil {
		return nil
	}
	return &UserProfile{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Phone:          u.Phone,
		Role:           u.Role,
		Provider:       u.Provider,
		ProfilePicture: u.ProfilePicture,
		IsVerified:     u.IsVerified,
		IsActive:       u.IsActive,
		LastLogin:      u.LastLogin,
		SchoolID:       u.SchoolID,
		RoleProfile:    u.RoleProfile,
		CreatedAt:      u.CreatedAt,
	}
}

// AuthResult is returned by signup, activation, login, Google sign-in and refresh.
type AuthResult struct {
	User         *UserProfile `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

// SessionSummary describes one of the caller's sessions.
type SessionSummary struct {
	ID         id.SessionID `json:"id"`
	DeviceName string       `json:"deviceName"`
	CreatedAt  time.Time    `json:"createdAt"`
	LastUsedAt time.Time    `json:"lastUsedAt"`
	ExpiresAt  time.Time    `json:"expiresAt"`
}

// ActivationPreview is what a valid invitation token reveals for client pre-fill.
type ActivationPreview struct {
	Email    string       `json:"email"`
	Role     id.Role      `json:"role"`
	SchoolID *id.SchoolID `json:"school_id,omitempty"`
}
