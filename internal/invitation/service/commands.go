package service

import (
	"context"
	"errors"
	"time"

	invmodels "schoolbridge/internal/invitation/models"
	"schoolbridge/internal/invitation/policy"
	"schoolbridge/internal/platform/tracer"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/privacy"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
	v "schoolbridge/pkg/validation"
)

type entryInput struct {
	Email string `validate:"required,email,max=255"`
}

// resolver checks one entry against an issuing rule and returns the bound school.
type resolver func(issuer requestcontext.Principal, role id.Role, requested *id.SchoolID) (*id.SchoolID, error)

// CreateBatch processes entries sequentially and reports a result per entry. Entries are
// independent: a rejected or failed entry does not roll back the others. When no entry
// produced a stored invitation the result is returned alongside a bad request error.
func (s *Service) CreateBatch(ctx context.Context, issuer requestcontext.Principal, req *invmodels.CreateRequest) (*invmodels.BatchResult, error) {
	if !policy.CanInvite(issuer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "role cannot send invitations")
	}
	return s.createBatch(ctx, issuer, req, policy.Resolve)
}

// ProvisionBatch is CreateBatch under the platform provisioning rule: SuperAdmin only, any
// account type, school roles bound to an explicit school.
func (s *Service) ProvisionBatch(ctx context.Context, issuer requestcontext.Principal, req *invmodels.CreateRequest) (*invmodels.BatchResult, error) {
	if !policy.CanProvision(issuer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only superadmins can provision accounts")
	}
	return s.createBatch(ctx, issuer, req, policy.ResolveProvision)
}

func (s *Service) createBatch(ctx context.Context, issuer requestcontext.Principal, req *invmodels.CreateRequest, resolve resolver) (*invmodels.BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanInvitationBatch,
		tracer.String("issuer_role", string(issuer.Role)),
		tracer.Int("entries", len(req.Users)),
	)
	result := &invmodels.BatchResult{Credentials: make([]invmodels.EntryResult, 0, len(req.Users))}
	seen := make(map[string]bool, len(req.Users))

	for _, raw := range req.Users {
		res := s.createEntry(ctx, issuer, raw, seen, resolve)
		switch res.Status {
		case invmodels.EntryCreated:
			result.Created++
		case invmodels.EntryFailed:
			result.Failed++
		}
		result.Credentials = append(result.Credentials, res)
	}

	span.SetAttributes(tracer.Int("created", result.Created), tracer.Int("failed", result.Failed))
	if result.Created+result.Failed == 0 {
		err := dErrors.New(dErrors.CodeBadRequest, "no invitations were created")
		span.End(err)
		return result, err
	}
	span.End(nil)
	return result, nil
}

func (s *Service) createEntry(ctx context.Context, issuer requestcontext.Principal, raw invmodels.InviteEntry, seen map[string]bool, resolve resolver) invmodels.EntryResult {
	res := invmodels.EntryResult{Email: raw.Email, Role: raw.Role, Status: invmodels.EntryError}
	ctx, span := s.tracer.Start(ctx, tracer.SpanInvitationEntry, tracer.String("role", raw.Role))

	entry, err := s.parseEntry(ctx, issuer, raw, seen, resolve)
	if err != nil {
		res.Error = err.Error()
		span.End(err)
		return res
	}

	now := requesttime.Now(ctx)
	inv := &invmodels.Invitation{
		ID:        id.NewInvitationID(),
		Email:     entry.Email,
		Role:      entry.Role,
		SchoolID:  entry.SchoolID,
		Status:    invmodels.StatusPending,
		ExpiresAt: now.Add(s.ttl),
		CreatedBy: issuer.UserID,
		CreatedAt: now,
	}
	if err := s.mint(ctx, inv, s.store.Create); err != nil {
		s.logger.ErrorContext(ctx, "failed to store invitation",
			"error", err,
			"email", privacy.MaskEmail(entry.Email),
			"request_id", requestcontext.RequestID(ctx),
		)
		res.Error = "could not create invitation"
		span.End(err)
		return res
	}
	s.metrics.IncrementInvitationsCreated(string(inv.Role))
	s.logAudit(ctx, "invitation_created",
		"invitation_id", inv.ID.String(),
		"role", string(inv.Role),
		"issuer_id", issuer.UserID.String(),
		"email", privacy.MaskEmail(inv.Email),
	)

	invID := inv.ID
	res.InvitationID = &invID
	res.ExpiresAt = inv.ExpiresAt.UTC().Format(time.RFC3339)
	res.Status = invmodels.EntryCreated
	if err := s.deliver(ctx, inv, now); err != nil {
		s.logger.WarnContext(ctx, "invitation email failed",
			"error", err,
			"invitation_id", inv.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		res.Status = invmodels.EntryFailed
		res.Error = "invitation saved but email could not be sent"
	}
	span.End(nil)
	return res
}

// parseEntry validates one row against input rules, policy, and existing accounts.
func (s *Service) parseEntry(ctx context.Context, issuer requestcontext.Principal, raw invmodels.InviteEntry, seen map[string]bool, resolve resolver) (*invmodels.Entry, error) {
	if err := v.Validate(entryInput{Email: raw.Email}); err != nil {
		return nil, errors.New("invalid email")
	}
	role := id.Role(raw.Role)
	if !role.IsValid() {
		return nil, errors.New("invalid role")
	}
	var requested *id.SchoolID
	if raw.SchoolID != nil {
		school, err := id.ParseSchoolID(*raw.SchoolID)
		if err != nil {
			return nil, errors.New("invalid school_id")
		}
		requested = &school
	}
	school, err := resolve(issuer, role, requested)
	if err != nil {
		return nil, err
	}
	if seen[raw.Email] {
		return nil, errors.New("duplicate email in request")
	}
	seen[raw.Email] = true

	if _, err := s.users.FindByEmail(ctx, raw.Email); err == nil {
		return nil, errors.New("user already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, errors.New("could not check existing users")
	}
	if _, err := s.store.FindActionableByEmail(ctx, raw.Email, requesttime.Now(ctx)); err == nil {
		return nil, errors.New("pending invitation exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, errors.New("could not check existing invitations")
	}
	return &invmodels.Entry{Email: raw.Email, Role: role, SchoolID: school}, nil
}

// Resend mints a fresh token and expiry and sends the email again. A send failure is
// recorded on the invitation and reflected in the returned view, not as an error.
// The reissue only lands if the invitation still carries the token that was read, so an
// activation racing the resend wins and the resend reports a conflict.
func (s *Service) Resend(ctx context.Context, issuer requestcontext.Principal, invitationID id.InvitationID) (*invmodels.View, error) {
	inv, err := s.scoped(ctx, issuer, invitationID)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case invmodels.StatusAccepted:
		return nil, dErrors.New(dErrors.CodeConflict, "invitation already accepted")
	case invmodels.StatusRevoked:
		return nil, dErrors.New(dErrors.CodeConflict, "invitation was revoked")
	}

	now := requesttime.Now(ctx)
	previous := inv.Token
	inv.Status = invmodels.StatusPending
	inv.ErrorDetail = ""
	inv.ExpiresAt = now.Add(s.ttl)
	reissue := func(ctx context.Context, next *invmodels.Invitation) error {
		return s.store.Reissue(ctx, next, previous)
	}
	if err := s.mint(ctx, inv, reissue); err != nil {
		return nil, translateStoreError(err, "failed to refresh invitation")
	}
	if err := s.deliver(ctx, inv, now); err != nil {
		s.logger.WarnContext(ctx, "invitation resend failed",
			"error", err,
			"invitation_id", inv.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.logAudit(ctx, "invitation_resent",
		"invitation_id", inv.ID.String(),
		"issuer_id", issuer.UserID.String(),
		"status", string(inv.Status),
	)
	return invmodels.ToView(inv, now), nil
}

// Revoke cancels an unaccepted invitation. Revoking twice is a no-op.
func (s *Service) Revoke(ctx context.Context, issuer requestcontext.Principal, invitationID id.InvitationID) (*invmodels.View, error) {
	inv, err := s.scoped(ctx, issuer, invitationID)
	if err != nil {
		return nil, err
	}
	now := requesttime.Now(ctx)
	switch inv.Status {
	case invmodels.StatusAccepted:
		return nil, dErrors.New(dErrors.CodeConflict, "accepted invitations cannot be revoked")
	case invmodels.StatusRevoked:
		return invmodels.ToView(inv, now), nil
	}

	if err := s.store.Revoke(ctx, inv.ID); err != nil {
		if !errors.Is(err, sentinel.ErrStale) {
			return nil, translateStoreError(err, "failed to revoke invitation")
		}
		// Changed since the read: a concurrent revoke is fine, an activation is not.
		current, findErr := s.store.FindByID(ctx, inv.ID)
		if findErr != nil {
			return nil, translateStoreError(findErr, "failed to revoke invitation")
		}
		if current.Status != invmodels.StatusRevoked {
			return nil, dErrors.New(dErrors.CodeConflict, "accepted invitations cannot be revoked")
		}
		return invmodels.ToView(current, now), nil
	}
	inv.Status = invmodels.StatusRevoked
	s.logAudit(ctx, "invitation_revoked",
		"invitation_id", inv.ID.String(),
		"issuer_id", issuer.UserID.String(),
	)
	return invmodels.ToView(inv, now), nil
}

func (s *Service) scoped(ctx context.Context, issuer requestcontext.Principal, invitationID id.InvitationID) (*invmodels.Invitation, error) {
	if !policy.CanInvite(issuer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "role cannot manage invitations")
	}
	inv, err := s.store.FindByID(ctx, invitationID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load invitation")
	}
	if !policy.InScope(issuer, inv) {
		return nil, dErrors.New(dErrors.CodeForbidden, "invitation is outside your scope")
	}
	return inv, nil
}
