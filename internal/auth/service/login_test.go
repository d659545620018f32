package service

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"schoolbridge/internal/auth/google"
	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/requestcontext"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, accessToken, googleID, email string) (*google.Identity, error) {
	args := m.Called(ctx, accessToken, googleID, email)
	identity, _ := args.Get(0).(*google.Identity)
	return identity, args.Error(1)
}

func (s *ServiceSuite) TestLogin() {
	s.Run("valid credentials create a session and stamp last login", func() {
		s.SetupTest()
		user := s.seedUser("teacher@example.com", "pw-123456", id.RoleTeacher, nil)

		res, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "teacher@example.com", Password: "pw-123456", Role: "Teacher"})
		s.Require().NoError(err)
		s.Equal(user.ID, res.User.ID)
		s.Require().NotNil(res.User.LastLogin)
		s.Equal(s.now, *res.User.LastLogin)
		s.Equal(1, s.sessionCount(user.ID))
	})

	s.Run("unknown email is not found", func() {
		s.SetupTest()
		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "pw-123456", Role: "Teacher"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("deactivated account is forbidden", func() {
		s.SetupTest()
		user := s.seedUser("gone@example.com", "pw-123456", id.RoleTeacher, nil)
		s.Require().NoError(s.users.SetActive(s.ctx, user.ID, false, s.now))

		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "gone@example.com", Password: "pw-123456", Role: "Teacher"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("correct password with the wrong role is rejected without a session", func() {
		s.SetupTest()
		user := s.seedUser("teacher@example.com", "pw-123456", id.RoleTeacher, nil)

		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "teacher@example.com", Password: "pw-123456", Role: "Admin"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Equal(0, s.sessionCount(user.ID))
	})

	s.Run("wrong password is unauthorized", func() {
		s.SetupTest()
		s.seedUser("teacher@example.com", "pw-123456", id.RoleTeacher, nil)

		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "teacher@example.com", Password: "nope-nope", Role: "Teacher"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(s.logs.String(), "invalid_password")
	})

	s.Run("google accounts cannot log in with a password", func() {
		s.SetupTest()
		_, err := s.service.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
			User: models.GoogleUser{GoogleID: "g-1", Email: "oauth@example.com", Name: "O Auth"},
			Role: "Student",
		})
		s.Require().NoError(err)

		_, err = s.service.Login(s.ctx, &models.LoginRequest{Email: "oauth@example.com", Password: "anything-at-all", Role: "Student"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestGoogleAuth() {
	s.Run("creates a google account for a self-service role", func() {
		s.SetupTest()
		res, err := s.service.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
			User: models.GoogleUser{GoogleID: "g-1", Email: "kid@example.com", GivenName: "Kid", FamilyName: "Example", Picture: "https://img.example.com/k.png"},
			Role: "Student",
		})
		s.Require().NoError(err)
		s.Equal(models.ProviderGoogle, res.User.Provider)
		s.Equal("Kid Example", res.User.FullName)
		s.True(res.User.IsVerified)
		s.NotNil(res.User.LastLogin)
	})

	s.Run("staff roles cannot be self-assigned", func() {
		s.SetupTest()
		_, err := s.service.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
			User: models.GoogleUser{GoogleID: "g-2", Email: "boss@example.com"},
			Role: "Admin",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("existing email account is linked and refreshed", func() {
		s.SetupTest()
		user := s.seedUser("parent@example.com", "pw-123456", id.RoleParent, nil)

		res, err := s.service.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
			User: models.GoogleUser{GoogleID: "g-3", Email: "parent@example.com", Name: "Pat Parent", Picture: "https://img.example.com/p.png"},
			Role: "Parent",
		})
		s.Require().NoError(err)
		s.Equal(user.ID, res.User.ID)
		s.Equal("Pat Parent", res.User.FullName)

		stored, err := s.users.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal("g-3", stored.GoogleID)
		s.Equal(models.ProviderEmail, stored.Provider)
	})

	s.Run("role mismatch on an existing account is a bad request", func() {
		s.SetupTest()
		s.seedUser("parent@example.com", "pw-123456", id.RoleParent, nil)

		_, err := s.service.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
			User: models.GoogleUser{GoogleID: "g-3", Email: "parent@example.com"},
			Role: "Teacher",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("verifier rejects a forged profile", func() {
		s.SetupTest()
		verifier := new(mockVerifier)
		verifier.On("Verify", mock.Anything, "ya29.token", "g-4", "who@example.com").
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "google token does not match the supplied profile")).Once()
		s.service = New(s.users, s.sessions, s.jwt, s.service.invitations, WithGoogleVerifier(verifier), WithPasswordHasher(fastHash))

		_, err := s.service.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
			User:        models.GoogleUser{GoogleID: "g-4", Email: "who@example.com"},
			Role:        "Visitor",
			AccessToken: "ya29.token",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		verifier.AssertExpectations(s.T())
	})

	s.Run("verifier is skipped without an access token", func() {
		s.SetupTest()
		verifier := new(mockVerifier)
		s.service = New(s.users, s.sessions, s.jwt, s.service.invitations, WithGoogleVerifier(verifier), WithPasswordHasher(fastHash))

		_, err := s.service.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
			User: models.GoogleUser{GoogleID: "g-5", Email: "plain@example.com"},
			Role: "Visitor",
		})
		s.Require().NoError(err)
		verifier.AssertNotCalled(s.T(), "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	s.Run("verifier identity fills missing profile fields", func() {
		s.SetupTest()
		verifier := new(mockVerifier)
		verifier.On("Verify", mock.Anything, "ya29.ok", "g-6", "filled@example.com").
			Return(&google.Identity{Subject: "g-6", Email: "filled@example.com", Name: "Filled In", Picture: "https://img.example.com/f.png"}, nil)
		s.service = New(s.users, s.sessions, s.jwt, s.service.invitations, WithGoogleVerifier(verifier), WithPasswordHasher(fastHash))

		res, err := s.service.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
			User:        models.GoogleUser{GoogleID: "g-6", Email: "filled@example.com"},
			Role:        "Visitor",
			AccessToken: "ya29.ok",
		})
		s.Require().NoError(err)
		s.Equal("Filled In", res.User.FullName)
		s.Equal("https://img.example.com/f.png", res.User.ProfilePicture)
	})
}

type failingUsers struct {
	UserStore
}

func (failingUsers) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func (s *ServiceSuite) TestLoginStoreFailureIsInternal() {
	s.service = New(failingUsers{s.users}, s.sessions, s.jwt, s.service.invitations)

	_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "x@example.com", Password: "pw-123456", Role: "Teacher"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// deactivatingUsers runs onRead once after an account lookup returns, before the service
// acts on what it read.
type deactivatingUsers struct {
	UserStore
	onRead func()
}

func (d *deactivatingUsers) read() {
	if hook := d.onRead; hook != nil {
		d.onRead = nil
		hook()
	}
}

func (d *deactivatingUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := d.UserStore.FindByEmail(ctx, email)
	d.read()
	return u, err
}

func (d *deactivatingUsers) FindByEmailOrGoogleID(ctx context.Context, email, googleID string) (*models.User, error) {
	u, err := d.UserStore.FindByEmailOrGoogleID(ctx, email, googleID)
	d.read()
	return u, err
}

func (s *ServiceSuite) TestDeactivationDuringSignIn() {
	school := id.NewSchoolID()
	admin := requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleAdmin, SchoolID: &school}

	signIns := map[string]func(svc *Service) error{
		"password login": func(svc *Service) error {
			_, err := svc.Login(s.ctx, &models.LoginRequest{Email: "t@example.com", Password: "pw-123456", Role: "Teacher"})
			return err
		},
		"google sign-in": func(svc *Service) error {
			_, err := svc.GoogleAuth(s.ctx, &models.GoogleAuthRequest{
				User: models.GoogleUser{GoogleID: "g-t", Email: "t@example.com", Name: "Tess Teacher"},
				Role: "Teacher",
			})
			return err
		},
	}
	for name, signIn := range signIns {
		s.Run(name, func() {
			s.SetupTest()
			user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, &school)
			users := &deactivatingUsers{UserStore: s.users, onRead: func() {
				_, err := s.service.SetUserActive(s.ctx, admin, user.ID, false)
				s.Require().NoError(err)
			}}
			svc := New(users, s.sessions, s.jwt, s.service.invitations, WithPasswordHasher(fastHash))

			err := signIn(svc)
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

			stored, err := s.users.FindByID(s.ctx, user.ID)
			s.Require().NoError(err)
			s.False(stored.IsActive)
			s.Nil(stored.LastLogin)
			s.Equal(0, s.sessionCount(user.ID))
		})
	}
}

func (s *ServiceSuite) TestProfileUpdateKeepsDeactivation() {
	user := s.seedUser("t@example.com", "pw-123456", id.RoleTeacher, nil)
	stale, err := s.users.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.users.SetActive(s.ctx, user.ID, false, s.now))

	stale.Phone = "+1 555 0100"
	s.Require().NoError(s.users.Update(s.ctx, stale))

	stored, err := s.users.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.False(stored.IsActive)
	s.Equal("+1 555 0100", stored.Phone)
}
