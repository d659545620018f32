package models

import (
	"strings"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/validation"
	s "schoolbridge/pkg/string"
	v "schoolbridge/pkg/validation"
)

// SignupTypeVisitor is the only self-registration path.
const SignupTypeVisitor = "visitor"

// SignupRequest is the public self-registration payload. Role is accepted but ignored.
type SignupRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	FullName   string `json:"fullName" validate:"notblank,max=200"`
	Phone      string `json:"phone" validate:"max=32"`
	Role       string `json:"role,omitempty"`
	SignupType string `json:"signupType"`
}

func (r *SignupRequest) Normalize() {
	r.Email = s.NormalizeEmail(r.Email)
	s.TrimStrings(&r.FullName, &r.Phone, &r.SignupType)
	r.SignupType = strings.ToLower(r.SignupType)
}

func (r *SignupRequest) Validate() error {
	return v.Validate(r)
}

// LoginRequest requires the caller to know their role up front.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = s.NormalizeEmail(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

func (r *LoginRequest) Validate() error {
	if err := v.Validate(r); err != nil {
		return err
	}
	if !id.Role(r.Role).IsValid() {
		return dErrors.WithDetails(dErrors.CodeValidation, "role is invalid", map[string]string{"role": "role is invalid"})
	}
	return nil
}

// GoogleUser is the profile the client obtained from Google Sign-In.
type GoogleUser struct {
	GoogleID   string `json:"googleId" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Name       string `json:"name" validate:"max=200"`
	GivenName  string `json:"givenName" validate:"max=100"`
	FamilyName string `json:"familyName" validate:"max=100"`
	Picture    string `json:"picture" validate:"omitempty,url,max=2048"`
}

// DisplayName prefers the full name and falls back to given/family names, then the email.
func (g GoogleUser) DisplayName() string {
	if name := strings.TrimSpace(g.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(g.GivenName + " " + g.FamilyName); name != "" {
		return name
	}
	return g.Email
}

// GoogleAuthRequest carries the Google profile, the role the user claims, and optionally
// the Google access token for server-side verification.
type GoogleAuthRequest struct {
	User        GoogleUser `json:"user" validate:"required"`
	Role        string     `json:"role" validate:"required"`
	AccessToken string     `json:"accessToken,omitempty" validate:"max=4096"`
}

func (r *GoogleAuthRequest) Normalize() {
	r.User.Email = s.NormalizeEmail(r.User.Email)
	s.TrimStrings(&r.User.GoogleID, &r.Role, &r.AccessToken)
}

func (r *GoogleAuthRequest) Validate() error {
	if err := v.Validate(r); err != nil {
		return err
	}
	if !id.Role(r.Role).IsValid() {
		return dErrors.WithDetails(dErrors.CodeValidation, "role is invalid", map[string]string{"role": "role is invalid"})
	}
	return nil
}

// RefreshRequest is used by both /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *RefreshRequest) Normalize() {
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
}

// Validate only bounds the size; empty tokens are handled by the service so logout stays idempotent.
func (r *RefreshRequest) Validate() error {
	return validation.CheckStringLength("refreshToken", r.RefreshToken, validation.MaxRefreshTokenLength)
}

// ActivateRequest consumes an invitation token.
type ActivateRequest struct {
	Token    string `json:"token" validate:"required"`
	FullName string `json:"fullName" validate:"notblank,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"max=32"`
}

func (r *ActivateRequest) Normalize() {
	s.TrimStrings(&r.Token, &r.FullName, &r.Phone)
	r.Token = strings.ToLower(r.Token)
}

func (r *ActivateRequest) Validate() error {
	return v.Validate(r)
}

// UpdateProfileRequest patches editable profile fields; nil fields are left unchanged.
type UpdateProfileRequest struct {
	FullName       *string `json:"fullName" validate:"omitempty,notblank,max=200"`
	Phone          *string `json:"phone" validate:"omitempty,max=32"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,url,max=2048"`
}

func (r *UpdateProfileRequest) Normalize() {
	for _, p := range []*string{r.FullName, r.Phone, r.ProfilePicture} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

func (r *UpdateProfileRequest) Validate() error {
	if r.FullName == nil && r.Phone == nil && r.ProfilePicture == nil {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	return v.Validate(r)
}

// SetUserStatusRequest toggles the soft-disable flag.
type SetUserStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (r *SetUserStatusRequest) Validate() error {
	return v.Validate(r)
}
