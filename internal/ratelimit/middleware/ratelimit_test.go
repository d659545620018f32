package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"schoolbridge/internal/platform/metrics"
	"schoolbridge/internal/ratelimit/models"
	"schoolbridge/internal/ratelimit/store/bucket"
	"schoolbridge/pkg/requestcontext"
)

type MiddlewareSuite struct {
	suite.Suite
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.metrics = metrics.New(prometheus.NewRegistry())
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("redis: connection refused")
}

func (s *MiddlewareSuite) serve(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req = req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func (s *MiddlewareSuite) TestEnforcesTheClassBudget() {
	mw := New(bucket.NewInMemoryBucketStore(),
		WithLogger(s.logger),
		WithMetrics(s.metrics),
		WithLimit(models.ClassAuth, models.Limit{Requests: 2, Window: time.Minute}),
	)
	h := mw.RateLimit(models.ClassAuth)(ok())

	first := s.serve(h, "203.0.113.7")
	s.Equal(http.StatusOK, first.Code)
	s.Equal("2", first.Header().Get("X-RateLimit-Limit"))
	s.Equal("1", first.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(first.Header().Get("X-RateLimit-Reset"))

	s.Equal(http.StatusOK, s.serve(h, "203.0.113.7").Code)

	denied := s.serve(h, "203.0.113.7")
	s.Equal(http.StatusTooManyRequests, denied.Code)
	s.Equal("0", denied.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(denied.Header().Get("Retry-After"))
	s.Contains(denied.Body.String(), `"rate_limited"`)
	s.Contains(denied.Body.String(), `"success":false`)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.RateLimited.WithLabelValues("auth")))

	s.Equal(http.StatusOK, s.serve(h, "198.51.100.1").Code, "other clients keep their own budget")
}

func (s *MiddlewareSuite) TestClassesHaveSeparateBudgets() {
	mw := New(bucket.NewInMemoryBucketStore(),
		WithLogger(s.logger),
		WithLimit(models.ClassAuth, models.Limit{Requests: 1, Window: time.Minute}),
	)
	auth := mw.RateLimit(models.ClassAuth)(ok())
	read := mw.RateLimit(models.ClassRead)(ok())

	s.Equal(http.StatusOK, s.serve(auth, "203.0.113.7").Code)
	s.Equal(http.StatusTooManyRequests, s.serve(auth, "203.0.113.7").Code)
	s.Equal(http.StatusOK, s.serve(read, "203.0.113.7").Code)
}

func (s *MiddlewareSuite) TestFailsOpenOnStoreErrors() {
	h := New(failingStore{}, WithLogger(s.logger)).RateLimit(models.ClassAuth)(ok())
	rr := s.serve(h, "203.0.113.7")
	s.Equal(http.StatusOK, rr.Code)
	s.Empty(rr.Header().Get("X-RateLimit-Limit"))
}

func (s *MiddlewareSuite) TestDisabled() {
	h := New(failingStore{}, WithDisabled()).RateLimit(models.ClassAuth)(ok())
	s.Equal(http.StatusOK, s.serve(h, "203.0.113.7").Code)
}
