package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"schoolbridge/internal/platform/metrics"
	"schoolbridge/internal/ratelimit/models"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
	"schoolbridge/pkg/platform/privacy"
	"schoolbridge/pkg/requestcontext"
)

// BucketStore is satisfied by the in-memory and Redis bucket stores.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	store   BucketStore
	limits  map[models.EndpointClass]models.Limit
	logger  *slog.Logger
	metrics *metrics.Metrics
	enabled bool
}

type Option func(*Middleware)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = mx }
}

// WithLimit overrides the budget of one class.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) { m.limits[class] = limit }
}

// WithDisabled turns every RateLimit handler into a pass-through.
func WithDisabled() Option {
	return func(m *Middleware) { m.enabled = false }
}

func New(store BucketStore, opts ...Option) *Middleware {
	m := &Middleware{
		store:   store,
		limits:  make(map[models.EndpointClass]models.Limit, len(models.DefaultLimits)),
		logger:  slog.Default(),
		enabled: true,
	}
	for class, limit := range models.DefaultLimits {
		m.limits[class] = limit
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit enforces the per-IP budget of class. Store failures let the request through.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	limit, ok := m.limits[class]
	return func(next http.Handler) http.Handler {
		if !m.enabled || !ok {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.store.Allow(ctx, models.Key(class, ip), limit.Requests, limit.Window)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"error", err, "class", string(class), "ip_prefix", privacy.AnonymizeIP(ip))
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncrementRateLimited(string(class))
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", string(class), "ip_prefix", privacy.AnonymizeIP(ip),
					"request_id", requestcontext.RequestID(ctx))
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, please try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// addRateLimitHeaders sets X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset
// (unix seconds).
func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
