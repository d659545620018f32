package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/privacy"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/secrets"
)

// Roles a Google sign-in may create an account for. Staff roles come only from invitations.
var selfServiceOAuthRoles = []id.Role{id.RoleVisitor, id.RoleStudent, id.RoleTeacher, id.RoleParent}

// Login authenticates with email, password and the role the caller expects to hold.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	masked := privacy.MaskEmail(req.Email)
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "user_not_found", false, "email", masked)
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.IsActive {
		s.authFailure(ctx, "account_deactivated", false, "user_id", user.ID.String())
		return nil, errDeactivated()
	}
	if user.Role != id.Role(req.Role) {
		s.authFailure(ctx, "role_mismatch", false, "user_id", user.ID.String(), "role", req.Role)
		return nil, errRoleMismatch()
	}
	if err := secrets.Verify(req.Password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.authFailure(ctx, "invalid_password", false, "user_id", user.ID.String())
		} else {
			s.authFailure(ctx, "password_check_failed", true, "user_id", user.ID.String(), "error", err)
		}
		return nil, err
	}

	if err := s.recordLogin(ctx, user, requesttime.Now(ctx)); err != nil {
		return nil, err
	}
	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementLogins(string(models.ProviderEmail))
	s.logAudit(ctx, "login_succeeded", "user_id", user.ID.String(), "provider", string(models.ProviderEmail))
	return result, nil
}

// GoogleAuth signs in or registers a Google account. Existing accounts are matched by email
// first and by Google ID second.
func (s *Service) GoogleAuth(ctx context.Context, req *models.GoogleAuthRequest) (*models.AuthResult, error) {
	profile := req.User
	if s.google != nil && req.AccessToken != "" {
		identity, err := s.google.Verify(ctx, req.AccessToken, profile.GoogleID, profile.Email)
		if err != nil {
			s.authFailure(ctx, "google_verification_failed", false, "email", privacy.MaskEmail(profile.Email))
			return nil, err
		}
		if profile.Picture == "" {
			profile.Picture = identity.Picture
		}
		if profile.Name == "" {
			profile.Name = identity.Name
		}
	}

	role := id.Role(req.Role)
	now := requesttime.Now(ctx)
	user, err := s.users.FindByEmailOrGoogleID(ctx, profile.Email, profile.GoogleID)
	switch {
	case err == nil:
		if user.Role != role {
			s.authFailure(ctx, "role_mismatch", false, "user_id", user.ID.String(), "role", req.Role)
			return nil, errRoleMismatch()
		}
		if !user.IsActive {
			s.authFailure(ctx, "account_deactivated", false, "user_id", user.ID.String())
			return nil, errDeactivated()
		}
		user.GoogleID = profile.GoogleID
		if profile.Picture != "" {
			user.ProfilePicture = profile.Picture
		}
		if name := profile.DisplayName(); name != profile.Email {
			user.SetFullName(name)
		}
		user.IsVerified = true
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return nil, translateUserWriteError(err, "failed to update user")
		}
		if err := s.recordLogin(ctx, user, now); err != nil {
			return nil, err
		}

	case errors.Is(err, sentinel.ErrNotFound):
		if !slices.Contains(selfServiceOAuthRoles, role) {
			s.authFailure(ctx, "role_not_self_service", false, "role", req.Role)
			return nil, dErrors.New(dErrors.CodeForbidden, "role cannot be self-assigned")
		}
		user, err = models.NewUser(models.NewUserParams{
			Email:          profile.Email,
			FullName:       profile.DisplayName(),
			Role:           role,
			Provider:       models.ProviderGoogle,
			GoogleID:       profile.GoogleID,
			ProfilePicture: profile.Picture,
			IsVerified:     true,
		}, now)
		if err != nil {
			return nil, err
		}
		user.RecordLogin(now)
		if err := s.users.Create(ctx, user); err != nil {
			return nil, translateUserWriteError(err, "failed to create user")
		}
		s.userCreated(ctx, user)

	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementLogins(string(models.ProviderGoogle))
	s.logAudit(ctx, "login_succeeded", "user_id", user.ID.String(), "provider", string(models.ProviderGoogle))
	return result, nil
}

// recordLogin stamps the login time through the store's active-only write, so an account
// deactivated after it was read cannot sign in.
func (s *Service) recordLogin(ctx context.Context, user *models.User, at time.Time) error {
	if err := s.users.RecordLogin(ctx, user.ID, at); err != nil {
		if errors.Is(err, sentinel.ErrStale) {
			s.authFailure(ctx, "account_deactivated", false, "user_id", user.ID.String())
			return errDeactivated()
		}
		return translateUserWriteError(err, "failed to record login")
	}
	user.RecordLogin(at)
	return nil
}
