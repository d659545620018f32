package service

import (
	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/requestcontext"
)

func strPtr(v string) *string { return &v }

func (s *ServiceSuite) TestMe() {
	user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)

	profile, err := s.service.Me(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, profile.Email)

	_, err = s.service.Me(s.ctx, id.NewUserID())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.Require().NoError(s.users.SetActive(s.ctx, user.ID, false, s.now))
	_, err = s.service.Me(s.ctx, user.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestUpdateProfile() {
	user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)

	profile, err := s.service.UpdateProfile(s.ctx, user.ID, &models.UpdateProfileRequest{
		FullName: strPtr("Mary Ann Evans"),
		Phone:    strPtr("+44 20 7946 0000"),
	})
	s.Require().NoError(err)
	s.Equal("Mary", profile.FirstName)
	s.Equal("Ann Evans", profile.LastName)
	s.Equal("+44 20 7946 0000", profile.Phone)
	s.Empty(profile.ProfilePicture)
}

func (s *ServiceSuite) TestSetUserActive() {
	schoolA, schoolB := id.NewSchoolID(), id.NewSchoolID()
	admin := requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleAdmin, SchoolID: &schoolA}
	super := requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleSuperAdmin}

	s.Run("admin disables a user of their school and sessions end", func() {
		s.SetupTest()
		user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, &schoolA)
		res := s.login("t@example.com")

		profile, err := s.service.SetUserActive(s.ctx, admin, user.ID, false)
		s.Require().NoError(err)
		s.False(profile.IsActive)
		s.Equal(0, s.sessionCount(user.ID))

		_, err = s.service.Refresh(s.ctx, res.RefreshToken)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		profile, err = s.service.SetUserActive(s.ctx, admin, user.ID, true)
		s.Require().NoError(err)
		s.True(profile.IsActive)
	})

	s.Run("admin cannot touch another school", func() {
		s.SetupTest()
		user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, &schoolB)

		_, err := s.service.SetUserActive(s.ctx, admin, user.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("superadmin may act on anyone", func() {
		s.SetupTest()
		user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, &schoolB)

		_, err := s.service.SetUserActive(s.ctx, super, user.ID, false)
		s.NoError(err)
	})

	s.Run("teachers are forbidden and nobody can disable themselves", func() {
		s.SetupTest()
		user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, &schoolA)
		teacher := requestcontext.Principal{UserID: user.ID, Role: id.RoleTeacher, SchoolID: &schoolA}

		_, err := s.service.SetUserActive(s.ctx, teacher, id.NewUserID(), false)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.service.SetUserActive(s.ctx, super, super.UserID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown user is not found", func() {
		s.SetupTest()
		_, err := s.service.SetUserActive(s.ctx, super, id.NewUserID(), false)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
