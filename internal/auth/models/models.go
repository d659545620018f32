package models

import (
	"time"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	s "schoolbridge/pkg/string"
)

// Provider is the credential source of an account.
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
)

// User is the account aggregate. PasswordHash and TokenVersion never leave the service layer;
// use UserProfile for responses.
type User struct {
	ID             id.UserID
	Email          string
	PasswordHash   string
	FullName       string
	FirstName      string
	LastName       string
	Phone          string
	Role           id.Role
	Provider       Provider
	GoogleID       string
	ProfilePicture string
	IsVerified     bool
	IsActive       bool
	LastLogin      *time.Time
	TokenVersion   int
	SchoolID       *id.SchoolID
	RoleProfile    RoleProfile
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoleProfile carries role-specific attributes.
type RoleProfile struct {
	StudentID  string      `json:"studentId,omitempty"`
	Grade      string      `json:"grade,omitempty"`
	Section    string      `json:"section,omitempty"`
	EmployeeID string      `json:"employeeId,omitempty"`
	Subjects   []string    `json:"subjects,omitempty"`
	Children   []id.UserID `json:"children,omitempty"`
}

// NewUserParams collects what every account creation path supplies.
type NewUserParams struct {
	Email          string
	PasswordHash   string
	FullName       string
	Phone          string
	Role           id.Role
	Provider       Provider
	GoogleID       string
	ProfilePicture string
	IsVerified     bool
	SchoolID       *id.SchoolID
}

// NewUser builds an active account and enforces the account invariants.
func NewUser(p NewUserParams, now time.Time) (*User, error) {
	first, last := s.SplitFullName(p.FullName)
	u := &User{
		ID:             id.NewUserID(),
		Email:          s.NormalizeEmail(p.Email),
		PasswordHash:   p.PasswordHash,
		FullName:       p.FullName,
		FirstName:      first,
		LastName:       last,
		Phone:          p.Phone,
		Role:           p.Role,
		Provider:       p.Provider,
		GoogleID:       p.GoogleID,
		ProfilePicture: p.ProfilePicture,
		IsVerified:     p.IsVerified,
		IsActive:       true,
		SchoolID:       p.SchoolID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the invariants every stored user satisfies.
func (u *User) Validate() error {
	if u.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !u.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "role is invalid")
	}
	switch u.Provider {
	case ProviderEmail:
		if u.PasswordHash == "" {
			return dErrors.New(dErrors.CodeValidation, "password is required for email accounts")
		}
	case ProviderGoogle:
		if u.PasswordHash != "" {
			return dErrors.New(dErrors.CodeValidation, "google accounts cannot have a password")
		}
	default:
		return dErrors.New(dErrors.CodeValidation, "provider is invalid")
	}
	return nil
}

// RecordLogin stamps the last login time.
func (u *User) RecordLogin(at time.Time) {
	u.LastLogin = &at
	u.UpdatedAt = at
}

// SetFullName updates the display name and the derived first/last names.
func (u *User) SetFullName(full string) {
	u.FullName = full
	u.FirstName, u.LastName = s.SplitFullName(full)
}

// BelongsTo reports whether the user is affiliated with school.
func (u *User) BelongsTo(school id.SchoolID) bool {
	return u.SchoolID != nil && *u.SchoolID == school
}

// Session is one logged-in device. Only the SHA-256 of the current refresh token is kept.
type Session struct {
	ID         id.SessionID
	UserID     id.UserID
	TokenHash  string
	DeviceName string
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
