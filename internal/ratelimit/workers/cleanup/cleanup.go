// Package cleanup evicts idle in-memory rate-limit buckets.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BucketStore drops buckets whose windows hold no timestamps.
type BucketStore interface {
	Cleanup(ctx context.Context) (int, error)
}

// Worker sweeps the bucket store on a fixed interval.
type Worker struct {
	store    BucketStore
	interval time.Duration
	logger   *slog.Logger
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

func New(store BucketStore, opts ...Option) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("bucket store is required")
	}
	w := &Worker{
		store:    store,
		interval: 5 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start runs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "rate limit bucket cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep and returns the number of evicted buckets.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	evicted, err := w.store.Cleanup(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup buckets: %w", err)
	}
	if evicted > 0 {
		w.logger.DebugContext(ctx, "evicted idle rate limit buckets", "count", evicted)
	}
	return evicted, nil
}
