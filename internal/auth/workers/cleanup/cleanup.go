package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"schoolbridge/internal/platform/metrics"
)

// SessionStore exposes cleanup for expired sessions.
type SessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CleanupResult summarizes the deletions performed by a cleanup run.
type CleanupResult struct {
	DeletedSessions int
}

// CleanupService periodically removes sessions whose refresh token has expired.
type CleanupService struct {
	sessionStore SessionStore
	interval     time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCleanupMetrics(m *metrics.Metrics) CleanupOption {
	return func(s *CleanupService) { s.metrics = m }
}

// New constructs a CleanupService with required stores and options applied.
func New(sessionStore SessionStore, opts ...CleanupOption) (*CleanupService, error) {
	if sessionStore == nil {
		return nil, fmt.Errorf("sessionStore is required")
	}
	svc := &CleanupService{
		sessionStore: sessionStore,
		interval:     time.Hour,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce deletes every session that has expired as of now.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	deleted, err := s.sessionStore.DeleteExpired(ctx, s.now())
	if err != nil {
		return CleanupResult{}, fmt.Errorf("delete expired sessions: %w", err)
	}
	s.metrics.DecrementActiveSessions(deleted)
	if deleted > 0 {
		s.logger.InfoContext(ctx, "expired sessions removed", "count", deleted)
	}
	return CleanupResult{DeletedSessions: deleted}, nil
}
