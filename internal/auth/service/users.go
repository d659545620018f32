package service

import (
	"context"
	"errors"

	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
)

// Me loads the caller's sanitized profile. Missing and deactivated accounts are unauthorized.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.UserProfile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.ToProfile(user), nil
}

func (s *Service) activeUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.IsActive {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account is deactivated")
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, req *models.UpdateProfileRequest) (*models.UserProfile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		user.SetFullName(*req.FullName)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = *req.ProfilePicture
	}
	user.UpdatedAt = requesttime.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translateUserWriteError(err, "failed to update profile")
	}
	s.logAudit(ctx, "profile_updated", "user_id", user.ID.String())
	return models.ToProfile(user), nil
}

// SetUserActive enables or disables an account. Disabling also ends every session and
// invalidates outstanding access tokens. Admins may only act within their own school.
func (s *Service) SetUserActive(ctx context.Context, actor requestcontext.Principal, userID id.UserID, active bool) (*models.UserProfile, error) {
	if !actor.HasRole(id.RoleAdmin, id.RoleSuperAdmin) {
		return nil, dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
	}
	if actor.UserID == userID {
		return nil, dErrors.New(dErrors.CodeBadRequest, "cannot change your own status")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, translateUserWriteError(err, "failed to load user")
	}
	if actor.Role == id.RoleAdmin {
		if actor.SchoolID == nil || !user.BelongsTo(*actor.SchoolID) || user.Role == id.RoleSuperAdmin {
			return nil, dErrors.New(dErrors.CodeForbidden, "user is outside your school")
		}
	}

	if user.IsActive != active {
		now := requesttime.Now(ctx)
		if err := s.users.SetActive(ctx, user.ID, active, now); err != nil {
			return nil, translateUserWriteError(err, "failed to update user")
		}
		user.IsActive = active
		user.UpdatedAt = now
		if !active {
			if _, err := s.revokeAll(ctx, user.ID); err != nil {
				return nil, err
			}
		}
		s.logAudit(ctx, "user_status_changed",
			"user_id", user.ID.String(),
			"actor_id", actor.UserID.String(),
			"active", active,
		)
	}
	return models.ToProfile(user), nil
}
