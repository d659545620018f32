package service

import (
	"fmt"
	"time"

	"schoolbridge/internal/auth/models"
	invmodels "schoolbridge/internal/invitation/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/testutil"
)

func token(n int) string {
	return fmt.Sprintf("%064x", n)
}

func (s *ServiceSuite) activate(tok string) (*models.AuthResult, error) {
	return s.service.ActivateAccount(s.ctx, &models.ActivateRequest{
		Token:    tok,
		FullName: "Tess Teacher",
		Password: "new-password",
	})
}

func (s *ServiceSuite) TestValidateActivationToken() {
	school := id.NewSchoolID()
	s.seedInvitation("tess@example.com", id.RoleTeacher, &school, token(1), s.now.Add(72*time.Hour))
	s.seedInvitation("late@example.com", id.RoleTeacher, &school, token(2), s.now.Add(-time.Minute))

	preview, err := s.service.ValidateActivationToken(s.ctx, token(1))
	s.Require().NoError(err)
	s.Equal("tess@example.com", preview.Email)
	s.Equal(id.RoleTeacher, preview.Role)
	s.Equal(&school, preview.SchoolID)

	for _, tok := range []string{token(2), token(99), "short"} {
		_, err := s.service.ValidateActivationToken(s.ctx, tok)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest), tok)
		s.EqualError(err, "invalid or expired activation token")
	}
}

func (s *ServiceSuite) TestActivateAccount() {
	s.Run("creates the invited account with role and school from the invitation", func() {
		s.SetupTest()
		school := id.NewSchoolID()
		inv := s.seedInvitation("tess@example.com", id.RoleTeacher, &school, token(1), s.now.Add(72*time.Hour))

		res, err := s.activate(token(1))
		s.Require().NoError(err)
		s.Equal("tess@example.com", res.User.Email)
		s.Equal(id.RoleTeacher, res.User.Role)
		s.Equal(&school, res.User.SchoolID)
		s.True(res.User.IsVerified)
		s.Equal(1, s.sessionCount(res.User.ID))

		stored, err := s.invitations.FindByID(s.ctx, inv.ID)
		s.Require().NoError(err)
		s.Equal(invmodels.StatusAccepted, stored.Status)
		s.True(stored.IsUsed())
	})

	s.Run("replaying a consumed token fails", func() {
		s.SetupTest()
		s.seedInvitation("tess@example.com", id.RoleTeacher, nil, token(1), s.now.Add(72*time.Hour))

		_, err := s.activate(token(1))
		s.Require().NoError(err)

		_, err = s.activate(token(1))
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		_, err = s.service.ValidateActivationToken(s.ctx, token(1))
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("expired invitations cannot be activated", func() {
		s.SetupTest()
		s.seedInvitation("late@example.com", id.RoleTeacher, nil, token(1), s.now.Add(-time.Second))

		_, err := s.activate(token(1))
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("existing account is a conflict and the invitation is restored", func() {
		s.SetupTest()
		s.seedUser("tess@example.com", "pw-123456", id.RoleVisitor, nil)
		inv := s.seedInvitation("tess@example.com", id.RoleTeacher, nil, token(1), s.now.Add(72*time.Hour))

		_, err := s.activate(token(1))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		stored, err := s.invitations.FindByID(s.ctx, inv.ID)
		s.Require().NoError(err)
		s.Equal(invmodels.StatusPending, stored.Status)
		_, err = s.service.ValidateActivationToken(s.ctx, token(1))
		s.NoError(err)
	})

	s.Run("concurrent activations of one token have a single winner", func() {
		s.SetupTest()
		s.seedInvitation("race@example.com", id.RoleStudent, nil, token(7), s.now.Add(72*time.Hour))

		result := testutil.RunConcurrent(10, func(int) error {
			_, err := s.activate(token(7))
			return err
		})
		s.Equal(int32(1), result.Successes)
		s.Equal(int32(9), result.Rejected)
		s.Equal(int32(0), result.Errors)
	})
}

// TestInvitationLifecycle: a pending Teacher invitation validates, activates into a working
// login, then stops validating.
func (s *ServiceSuite) TestInvitationLifecycle() {
	school := id.NewSchoolID()
	s.seedInvitation("new.teacher@example.com", id.RoleTeacher, &school, token(42), s.now.Add(72*time.Hour))

	preview, err := s.service.ValidateActivationToken(s.ctx, token(42))
	s.Require().NoError(err)
	s.Equal("new.teacher@example.com", preview.Email)

	res, err := s.activate(token(42))
	s.Require().NoError(err)

	login, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "new.teacher@example.com", Password: "new-password", Role: "Teacher"})
	s.Require().NoError(err)
	s.Equal(res.User.ID, login.User.ID)

	_, err = s.service.ValidateActivationToken(s.ctx, token(42))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
