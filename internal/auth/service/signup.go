package service

import (
	"context"
	"errors"

	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/privacy"
	"schoolbridge/pkg/platform/sentinel"
)

// Signup self-registers a Visitor. Any supplied role is ignored and any signup type other
// than visitor is refused before anything is written.
func (s *Service) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResult, error) {
	if req.SignupType != models.SignupTypeVisitor {
		s.authFailure(ctx, "signup_type_forbidden", false, "signup_type", req.SignupType)
		return nil, dErrors.New(dErrors.CodeForbidden, "only visitor signup is allowed")
	}

	passwordHash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := models.NewUser(models.NewUserParams{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         id.RoleVisitor,
		Provider:     models.ProviderEmail,
	}, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translateUserWriteError(err, "failed to create user")
	}
	s.userCreated(ctx, user)

	return s.startSession(ctx, user)
}

// EnsureSuperAdmin seeds the platform operator account when no user holds email yet.
// It reports whether an account was created.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up bootstrap user")
	}

	passwordHash, err := s.hash(password)
	if err != nil {
		return false, err
	}
	user, err := models.NewUser(models.NewUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         id.RoleSuperAdmin,
		Provider:     models.ProviderEmail,
		IsVerified:   true,
	}, requesttime.Now(ctx))
	if err != nil {
		return false, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return false, nil
		}
		return false, translateUserWriteError(err, "failed to create bootstrap user")
	}
	s.userCreated(ctx, user)
	return true, nil
}

func (s *Service) userCreated(ctx context.Context, user *models.User) {
	s.metrics.IncrementUsersCreated(string(user.Role), string(user.Provider))
	s.logAudit(ctx, "user_created",
		"user_id", user.ID.String(),
		"email", privacy.MaskEmail(user.Email),
		"role", string(user.Role),
		"provider", string(user.Provider),
	)
}
