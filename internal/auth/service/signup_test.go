package service

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestSignup() {
	s.Run("visitor signup forces the visitor role", func() {
		s.SetupTest()
		res, err := s.service.Signup(s.ctx, &models.SignupRequest{
			Email:      "guest@example.com",
			Password:   "correct-horse",
			FullName:   "Grace Hopper",
			Role:       "Admin",
			SignupType: models.SignupTypeVisitor,
		})
		s.Require().NoError(err)
		s.Equal(id.RoleVisitor, res.User.Role)
		s.Equal("Grace", res.User.FirstName)
		s.Equal("Hopper", res.User.LastName)
		s.NotEmpty(res.AccessToken)
		s.NotEmpty(res.RefreshToken)
		s.Equal(1, s.sessionCount(res.User.ID))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.UsersCreated.WithLabelValues("Visitor", "email")))

		sessions, err := s.sessions.ListByUser(s.ctx, res.User.ID)
		s.Require().NoError(err)
		s.Contains(sessions[0].DeviceName, "iPhone")
	})

	s.Run("other signup types are forbidden and nothing is written", func() {
		s.SetupTest()
		_, err := s.service.Signup(s.ctx, &models.SignupRequest{
			Email:      "teacher@example.com",
			Password:   "correct-horse",
			FullName:   "Ada Lovelace",
			SignupType: "teacher",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.users.FindByEmail(s.ctx, "teacher@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate email is a conflict", func() {
		s.SetupTest()
		s.seedUser("taken@example.com", "pw-123456", id.RoleTeacher, nil)

		_, err := s.service.Signup(s.ctx, &models.SignupRequest{
			Email:      "taken@example.com",
			Password:   "correct-horse",
			FullName:   "Someone Else",
			SignupType: models.SignupTypeVisitor,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		var de *dErrors.Error
		s.Require().ErrorAs(err, &de)
		s.Equal("already exists", de.Details["email"])
	})
}

func (s *ServiceSuite) TestSanitizedProfile() {
	res, err := s.service.Signup(s.ctx, &models.SignupRequest{
		Email:      "guest@example.com",
		Password:   "correct-horse",
		FullName:   "Grace Hopper",
		SignupType: models.SignupTypeVisitor,
	})
	s.Require().NoError(err)

	raw, err := json.Marshal(res.User)
	s.Require().NoError(err)
	var fields map[string]any
	s.Require().NoError(json.Unmarshal(raw, &fields))
	for _, forbidden := range []string{"password", "passwordHash", "refreshTokens", "tokenVersion", "sessions"} {
		s.NotContains(fields, forbidden)
	}
	s.NotContains(string(raw), "correct-horse")
}

func (s *ServiceSuite) TestEnsureSuperAdmin() {
	created, err := s.service.EnsureSuperAdmin(s.ctx, "root@example.com", "bootstrap-pw", "Platform Owner")
	s.Require().NoError(err)
	s.True(created)

	created, err = s.service.EnsureSuperAdmin(s.ctx, "root@example.com", "bootstrap-pw", "Platform Owner")
	s.Require().NoError(err)
	s.False(created)

	user, err := s.users.FindByEmail(s.ctx, "root@example.com")
	s.Require().NoError(err)
	s.Equal(id.RoleSuperAdmin, user.Role)
	s.True(user.IsVerified)
}
