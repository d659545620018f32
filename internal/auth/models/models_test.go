package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
)

func TestNewUser_Invariants(t *testing.T) {
	now := time.Now()

	t.Run("email account requires password", func(t *testing.T) {
		_, err := NewUser(NewUserParams{Email: "a@b.io", Role: id.RoleVisitor, Provider: ProviderEmail}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("google account rejects password", func(t *testing.T) {
		_, err := NewUser(NewUserParams{Email: "a@b.io", PasswordHash: "x", Role: id.RoleVisitor, Provider: ProviderGoogle}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("role must be in the closed set", func(t *testing.T) {
		_, err := NewUser(NewUserParams{Email: "a@b.io", PasswordHash: "x", Role: "Janitor", Provider: ProviderEmail}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("normalizes email and derives names", func(t *testing.T) {
		u, err := NewUser(NewUserParams{
			Email: " Ada@School.IO ", PasswordHash: "x", FullName: "Ada King Lovelace",
			Role: id.RoleTeacher, Provider: ProviderEmail,
		}, now)
		require.NoError(t, err)
		assert.Equal(t, "ada@school.io", u.Email)
		assert.Equal(t, "Ada", u.FirstName)
		assert.Equal(t, "King Lovelace", u.LastName)
		assert.True(t, u.IsActive)
		assert.Zero(t, u.TokenVersion)
	})
}

func TestToProfile_NeverExposesSecrets(t *testing.T) {
	school := id.NewSchoolID()
	u := &User{
		ID: id.NewUserID(), Email: "ada@school.io", PasswordHash: "$2a$10$secret",
		FullName: "Ada", Role: id.RoleTeacher, Provider: ProviderEmail,
		TokenVersion: 7, SchoolID: &school, IsActive: true,
		RoleProfile: RoleProfile{EmployeeID: "T-1", Subjects: []string{"math"}},
	}

	out, err := json.Marshal(ToProfile(u))
	require.NoError(t, err)

	body := string(out)
	for _, forbidden := range []string{"password", "Password", "refreshTokens", "tokenVersion", "TokenVersion", "$2a$10$secret"} {
		assert.False(t, strings.Contains(body, forbidden), "profile leaked %q", forbidden)
	}
	assert.Contains(t, body, `"employeeId":"T-1"`)
	assert.Nil(t, ToProfile(nil))
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(now.Add(time.Minute)))
}
