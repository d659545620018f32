package service

import (
	"context"

	"schoolbridge/internal/auth/models"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
)

// ValidateActivationToken previews the account an invitation token would create.
// It never changes state.
func (s *Service) ValidateActivationToken(ctx context.Context, token string) (*models.ActivationPreview, error) {
	preview, err := s.invitations.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &models.ActivationPreview{Email: preview.Email, Role: preview.Role, SchoolID: preview.SchoolID}, nil
}

// ActivateAccount consumes an invitation and creates the invited account. If the account
// cannot be created the invitation is put back to pending.
func (s *Service) ActivateAccount(ctx context.Context, req *models.ActivateRequest) (*models.AuthResult, error) {
	passwordHash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	inv, err := s.invitations.Consume(ctx, req.Token)
	if err != nil {
		s.authFailure(ctx, "invalid_activation_token", false)
		return nil, err
	}

	user, err := models.NewUser(models.NewUserParams{
		Email:        inv.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         inv.Role,
		Provider:     models.ProviderEmail,
		IsVerified:   true,
		SchoolID:     inv.SchoolID,
	}, requesttime.Now(ctx))
	if err == nil {
		err = translateUserWriteError(s.users.Create(ctx, user), "failed to create user")
	}
	if err != nil {
		if restoreErr := s.invitations.Restore(ctx, inv.ID); restoreErr != nil {
			s.logger.ErrorContext(ctx, "failed to restore invitation after activation failure",
				"invitation_id", inv.ID.String(), "error", restoreErr)
		}
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "user already exists")
		}
		return nil, err
	}
	s.userCreated(ctx, user)
	s.logAudit(ctx, "account_activated", "user_id", user.ID.String(), "invitation_id", inv.ID.String())

	return s.startSession(ctx, user)
}
