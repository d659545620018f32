package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"schoolbridge/internal/auth/models"
	invmodels "schoolbridge/internal/invitation/models"
	"schoolbridge/internal/invitation/mailer"
	"schoolbridge/internal/platform/metrics"
	"schoolbridge/internal/platform/tracer"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
	"schoolbridge/pkg/secrets"
)

// Store is the persistence contract for invitations.
// Error Contract: Find methods return sentinel.ErrNotFound; Consume additionally returns
// sentinel.ErrAlreadyUsed or sentinel.ErrExpired for tokens that exist but are not actionable.
// Reissue, RecordDelivery and Revoke only touch pending or failed rows (Reissue and
// RecordDelivery also require the expected token) and return sentinel.ErrStale otherwise.
type Store interface {
	Create(ctx context.Context, inv *invmodels.Invitation) error
	Reissue(ctx context.Context, inv *invmodels.Invitation, previousToken string) error
	RecordDelivery(ctx context.Context, inv *invmodels.Invitation) error
	Revoke(ctx context.Context, invitationID id.InvitationID) error
	FindByID(ctx context.Context, invitationID id.InvitationID) (*invmodels.Invitation, error)
	FindByToken(ctx context.Context, token string) (*invmodels.Invitation, error)
	FindActionableByEmail(ctx context.Context, email string, now time.Time) (*invmodels.Invitation, error)
	List(ctx context.Context, filter invmodels.ListFilter, now time.Time) ([]*invmodels.Invitation, error)
	Consume(ctx context.Context, token string, now time.Time) (*invmodels.Invitation, error)
	Restore(ctx context.Context, invitationID id.InvitationID) error
}

// UserLookup checks whether an invitee already has an account.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

const (
	defaultTTL         = 72 * time.Hour
	defaultSendTimeout = 10 * time.Second
	tokenAttempts      = 3
)

type Service struct {
	store       Store
	users       UserLookup
	mailer      mailer.Mailer
	links       mailer.Links
	ttl         time.Duration
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	newToken    func() (string, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithLinks(l mailer.Links) Option {
	return func(s *Service) { s.links = l }
}

// WithTTL sets how long a minted token stays actionable. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSendTimeout bounds each email send. Non-positive values keep the default.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithTokenGenerator replaces the random token source.
func WithTokenGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newToken = fn }
}

func New(store Store, users UserLookup, m mailer.Mailer, newToken func() (string, error), opts ...Option) *Service {
	svc := &Service{
		store:       store,
		users:       users,
		mailer:      m,
		ttl:         defaultTTL,
		sendTimeout: defaultSendTimeout,
		tracer:      tracer.Noop{},
		newToken:    newToken,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.mailer == nil {
		svc.mailer = mailer.NewLogMailer(svc.logger)
	}
	if svc.newToken == nil {
		svc.newToken = secrets.GenerateToken
	}
	return svc
}

// deliver sends the activation email for inv and records the outcome on it.
// The invitation is persisted regardless; a failed send marks it failed with the error detail.
// An invitation accepted or revoked while the email was in flight keeps its state.
func (s *Service) deliver(ctx context.Context, inv *invmodels.Invitation, now time.Time) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanInvitationSend,
		tracer.String("invitation_id", inv.ID.String()),
		tracer.String("role", string(inv.Role)),
	)
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	msg := mailer.InvitationMessage(s.links, inv.Email, string(inv.Role), inv.Token, inv.ExpiresAt)
	sendErr := s.mailer.Send(sendCtx, msg)
	span.End(sendErr)

	sentAt := now
	inv.LastSentAt = &sentAt
	inv.SendCount++
	if sendErr != nil {
		inv.Status = invmodels.StatusFailed
		inv.ErrorDetail = truncate(sendErr.Error(), 500)
		s.metrics.IncrementInvitationEmails("failed")
	} else {
		inv.Status = invmodels.StatusPending
		inv.ErrorDetail = ""
		s.metrics.IncrementInvitationEmails("sent")
	}

	if err := s.store.RecordDelivery(ctx, inv); err != nil {
		if errors.Is(err, sentinel.ErrStale) {
			s.logger.InfoContext(ctx, "invitation changed during delivery",
				"invitation_id", inv.ID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			return sendErr
		}
		return fmt.Errorf("record delivery: %w", err)
	}
	return sendErr
}

// mint generates a token, retrying on the unlikely event of a collision in create.
func (s *Service) mint(ctx context.Context, inv *invmodels.Invitation, save func(context.Context, *invmodels.Invitation) error) error {
	var lastErr error
	for range tokenAttempts {
		token, err := s.newToken()
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		inv.Token = token
		lastErr = save(ctx, inv)
		if lastErr == nil {
			return nil
		}
		if !isTokenConflict(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
