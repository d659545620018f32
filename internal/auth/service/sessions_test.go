package service

import (
	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/testutil"
)

func (s *ServiceSuite) login(email string) *models.AuthResult {
	res, err := s.service.Login(s.ctx, &models.LoginRequest{Email: email, Password: "pw-123456", Role: "Teacher"})
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) TestRefresh() {
	s.Run("rotation invalidates the previous refresh token", func() {
		s.SetupTest()
		s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)
		first := s.login("t@example.com")

		second, err := s.service.Refresh(s.ctx, first.RefreshToken)
		s.Require().NoError(err)
		s.NotEqual(first.RefreshToken, second.RefreshToken)
		s.Equal(1, s.sessionCount(first.User.ID))

		_, err = s.service.Refresh(s.ctx, first.RefreshToken)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = s.service.Refresh(s.ctx, second.RefreshToken)
		s.NoError(err)
	})

	s.Run("access tokens are not refresh tokens", func() {
		s.SetupTest()
		s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)
		res := s.login("t@example.com")

		_, err := s.service.Refresh(s.ctx, res.AccessToken)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("deactivated users cannot refresh", func() {
		s.SetupTest()
		user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)
		res := s.login("t@example.com")
		s.Require().NoError(s.users.SetActive(s.ctx, user.ID, false, s.now))

		_, err := s.service.Refresh(s.ctx, res.RefreshToken)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("concurrent refreshes with one token have a single winner", func() {
		s.SetupTest()
		s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)
		res := s.login("t@example.com")

		result := testutil.RunConcurrent(20, func(int) error {
			_, err := s.service.Refresh(s.ctx, res.RefreshToken)
			return err
		})
		s.Equal(int32(1), result.Successes)
		s.Equal(int32(19), result.Rejected)
	})
}

func (s *ServiceSuite) TestLogout() {
	s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)
	res := s.login("t@example.com")

	s.service.Logout(s.ctx, res.RefreshToken)
	s.Equal(0, s.sessionCount(res.User.ID))

	s.NotPanics(func() {
		s.service.Logout(s.ctx, res.RefreshToken)
		s.service.Logout(s.ctx, "")
		s.service.Logout(s.ctx, "garbage")
	})

	_, err := s.service.Refresh(s.ctx, res.RefreshToken)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLogoutAll() {
	user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)
	a := s.login("t@example.com")
	s.login("t@example.com")

	deleted, err := s.service.LogoutAll(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(2, deleted)
	s.Equal(0, s.sessionCount(user.ID))

	stored, err := s.users.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.TokenVersion+1, stored.TokenVersion)

	_, err = s.service.Refresh(s.ctx, a.RefreshToken)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestListSessions() {
	user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)
	s.login("t@example.com")
	s.login("t@example.com")

	sessions, err := s.service.ListSessions(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Len(sessions, 2)
	for _, sess := range sessions {
		s.Contains(sess.DeviceName, "iPhone")
		s.True(sess.ExpiresAt.After(s.now))
	}
}
