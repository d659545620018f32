package service

import (
	"context"
	"errors"

	invmodels "schoolbridge/internal/invitation/models"
	"schoolbridge/internal/invitation/policy"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
	v "schoolbridge/pkg/validation"
)

type tokenInput struct {
	Token string `validate:"required,token64"`
}

// List returns the invitations visible to issuer, optionally narrowed by status.
func (s *Service) List(ctx context.Context, issuer requestcontext.Principal, status string) ([]*invmodels.View, error) {
	filter, err := policy.Scope(issuer)
	if err != nil {
		return nil, err
	}
	if status != "" {
		filter.Status = invmodels.Status(status)
		if !filter.Status.IsValid() {
			return nil, dErrors.WithDetails(dErrors.CodeValidation, "status is invalid",
				map[string]string{"status": "must be one of pending, accepted, expired, failed, revoked"})
		}
	}

	now := requesttime.Now(ctx)
	invitations, err := s.store.List(ctx, filter, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list invitations")
	}
	views := make([]*invmodels.View, len(invitations))
	for i, inv := range invitations {
		views[i] = invmodels.ToView(inv, now)
	}
	return views, nil
}

// ValidateToken is read-only: it reveals the invitee's email, role and school only while
// the token is actionable.
func (s *Service) ValidateToken(ctx context.Context, token string) (*invmodels.Preview, error) {
	if v.Validate(tokenInput{Token: token}) != nil {
		return nil, errInvalidToken()
	}
	inv, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errInvalidToken()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token")
	}
	if !inv.IsActionable(requesttime.Now(ctx)) {
		return nil, errInvalidToken()
	}
	return &invmodels.Preview{Email: inv.Email, Role: inv.Role, SchoolID: inv.SchoolID}, nil
}

// Consume marks the invitation behind token accepted. Only one caller can win for a token.
func (s *Service) Consume(ctx context.Context, token string) (*invmodels.Invitation, error) {
	if v.Validate(tokenInput{Token: token}) != nil {
		return nil, errInvalidToken()
	}
	inv, err := s.store.Consume(ctx, token, requesttime.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) || errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, errInvalidToken()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume invitation")
	}
	s.logAudit(ctx, "invitation_accepted", "invitation_id", inv.ID.String(), "role", string(inv.Role))
	return inv, nil
}

// Restore reopens a consumed invitation after a failed activation.
func (s *Service) Restore(ctx context.Context, invitationID id.InvitationID) error {
	if err := s.store.Restore(ctx, invitationID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore invitation")
	}
	s.logAudit(ctx, "invitation_restored", "invitation_id", invitationID.String())
	return nil
}
