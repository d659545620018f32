// Package cleanup sweeps expired invitations that were never accepted.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"schoolbridge/internal/platform/metrics"
	"schoolbridge/internal/platform/tracer"
)

// InvitationStore deletes invitations where expiresAt < now and status is not accepted.
type InvitationStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Result summarizes one sweep.
type Result struct {
	Deleted  int
	RanAt    time.Time
	Duration time.Duration
}

// Worker runs the sweep on a fixed interval. Failures are logged and the next tick retries.
type Worker struct {
	store    InvitationStore
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	now      func() time.Time
}

type Option func(*Worker)

func WithInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(w *Worker) {
		if t != nil {
			w.tracer = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

func New(store InvitationStore, opts ...Option) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("invitation store is required")
	}
	w := &Worker{
		store:    store,
		interval: 24 * time.Hour,
		logger:   slog.Default(),
		tracer:   tracer.Noop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start sweeps once immediately and then every interval until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.runLogged(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runLogged(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) runLogged(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.ErrorContext(ctx, "invitation cleanup failed", "error", err)
	}
}

// RunOnce performs a single sweep.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	ctx, span := w.tracer.Start(ctx, tracer.SpanCleanupRun)
	start := w.now()

	deleted, err := w.store.DeleteExpired(ctx, start)
	if err != nil {
		err = fmt.Errorf("delete expired invitations: %w", err)
		span.End(err)
		return Result{RanAt: start}, err
	}

	res := Result{Deleted: deleted, RanAt: start, Duration: w.now().Sub(start)}
	span.SetAttributes(tracer.Int("deleted", deleted), tracer.Duration("duration", res.Duration))
	span.End(nil)

	w.metrics.AddInvitationsCleaned(deleted)
	w.logger.InfoContext(ctx, "invitation cleanup completed", "deleted", deleted)
	return res, nil
}
