package service

import (
	"context"
	"log/slog"
	"time"

	"schoolbridge/internal/auth/google"
	"schoolbridge/internal/auth/models"
	userStore "schoolbridge/internal/auth/store/user"
	invmodels "schoolbridge/internal/invitation/models"
	jwttoken "schoolbridge/internal/jwt_token"
	"schoolbridge/internal/platform/metrics"
	id "schoolbridge/pkg/domain"
)

// UserStore defines the persistence interface for accounts.
// Error Contract: Find methods return sentinel.ErrNotFound when the user doesn't exist;
// writes return *sentinel.ConflictError on a duplicate email or Google ID; RecordLogin
// returns sentinel.ErrStale for a deactivated account.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error
	SetActive(ctx context.Context, userID id.UserID, active bool, at time.Time) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailOrGoogleID(ctx context.Context, email, googleID string) (*models.User, error)
	BumpTokenVersion(ctx context.Context, userID id.UserID) (int, error)
	List(ctx context.Context, filter userStore.Filter) ([]*models.User, error)
}

// SessionStore defines the persistence interface for refresh-token sessions.
// Error Contract: FindByID and DeleteByTokenHash return sentinel.ErrNotFound; Rotate returns
// sentinel.ErrStale when the stored hash no longer matches.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Rotate(ctx context.Context, sessionID id.SessionID, oldHash, newHash string, usedAt, expiresAt time.Time) error
	DeleteByTokenHash(ctx context.Context, hash string) error
	DeleteByUser(ctx context.Context, userID id.UserID) (int, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error)
}

type TokenIssuer interface {
	IssuePair(ctx context.Context, sub jwttoken.Subject, sessionID id.SessionID) (*jwttoken.TokenPair, error)
	ValidateRefreshToken(token string) (*jwttoken.RefreshTokenClaims, error)
}

// Invitations is the slice of the invitation service that activation depends on.
type Invitations interface {
	ValidateToken(ctx context.Context, token string) (*invmodels.Preview, error)
	Consume(ctx context.Context, token string) (*invmodels.Invitation, error)
	Restore(ctx context.Context, invitationID id.InvitationID) error
}

type GoogleVerifier interface {
	Verify(ctx context.Context, accessToken, googleID, email string) (*google.Identity, error)
}

type Service struct {
	users       UserStore
	sessions    SessionStore
	tokens      TokenIssuer
	invitations Invitations
	google      GoogleVerifier
	logger      *slog.Logger
	metrics     *metrics.Metrics
	hash        func(password string) (string, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithGoogleVerifier enables server-side checks of Google access tokens.
// Without it the client-supplied Google profile is trusted.
func WithGoogleVerifier(v GoogleVerifier) Option {
	return func(s *Service) {
		s.google = v
	}
}

// WithPasswordHasher replaces bcrypt, mostly so tests avoid its cost.
func WithPasswordHasher(hash func(string) (string, error)) Option {
	return func(s *Service) {
		if hash != nil {
			s.hash = hash
		}
	}
}

func New(users UserStore, sessions SessionStore, tokens TokenIssuer, invitations Invitations, opts ...Option) *Service {
	svc := &Service{
		users:       users,
		sessions:    sessions,
		tokens:      tokens,
		invitations: invitations,
		hash:        hashPassword,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}
