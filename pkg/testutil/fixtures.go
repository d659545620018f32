package testutil

import (
	"strings"
	"time"

	"github.com/google/uuid"

	authmodels "schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	UserID1   id.UserID
	UserID2   id.UserID
	SchoolID1 id.SchoolID
	SchoolID2 id.SchoolID
}{
	UserID1:   id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:   id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	SchoolID1: id.SchoolID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	SchoolID2: id.SchoolID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *authmodels.User
}

// NewUserBuilder creates an active, verified Student with an email password.
func NewUserBuilder() *UserBuilder {
	now := time.Now().UTC()
	return &UserBuilder{
		user: &authmodels.User{
			ID:         id.NewUserID(),
			Email:      "test@example.com",
			FullName:   "Test User",
			FirstName:  "Test",
			LastName:   "User",
			Role:       id.RoleStudent,
			Provider:   authmodels.ProviderEmail,
			IsVerified: true,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

func (b *UserBuilder) WithID(userID id.UserID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = strings.ToLower(email)
	return b
}

func (b *UserBuilder) WithName(firstName, lastName string) *UserBuilder {
	b.user.FirstName = firstName
	b.user.LastName = lastName
	b.user.FullName = strings.TrimSpace(firstName + " " + lastName)
	return b
}

func (b *UserBuilder) WithRole(role id.Role) *UserBuilder {
	b.user.Role = role
	return b
}

func (b *UserBuilder) WithSchool(schoolID id.SchoolID) *UserBuilder {
	b.user.SchoolID = &schoolID
	return b
}

// WithPasswordHash sets a precomputed hash; tests hash once and share it.
func (b *UserBuilder) WithPasswordHash(hash string) *UserBuilder {
	b.user.PasswordHash = hash
	return b
}

func (b *UserBuilder) WithChildren(children ...id.UserID) *UserBuilder {
	b.user.RoleProfile.Children = children
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.user.IsActive = false
	return b
}

func (b *UserBuilder) Build() *authmodels.User {
	return b.user
}
