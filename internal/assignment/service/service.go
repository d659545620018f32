package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"schoolbridge/internal/assignment/models"
	authmodels "schoolbridge/internal/auth/models"
	classmodels "schoolbridge/internal/classroom/models"
	"schoolbridge/internal/platform/metrics"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
)

// Store persists assignments.
// Error Contract: FindByID, Update, Delete and Grade return sentinel.ErrNotFound;
// UpsertSubmission returns sentinel.ErrAlreadyUsed once the submission is graded.
type Store interface {
	Create(ctx context.Context, a *models.Assignment) error
	Update(ctx context.Context, a *models.Assignment) error
	FindByID(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Assignment, error)
	Delete(ctx context.Context, assignmentID id.AssignmentID) error
	UpsertSubmission(ctx context.Context, assignmentID id.AssignmentID, sub models.Submission) error
	Grade(ctx context.Context, assignmentID id.AssignmentID, studentID id.UserID, grade int, feedback string, at time.Time) error
}

// ClassLookup reads classes for ownership and enrolment checks.
type ClassLookup interface {
	FindByID(ctx context.Context, classID id.ClassID) (*classmodels.Class, error)
	List(ctx context.Context, filter classmodels.Filter) ([]*classmodels.Class, error)
}

// UserLookup resolves the teacher named in the path.
type UserLookup interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

type Service struct {
	assignments Store
	classes     ClassLookup
	users       UserLookup
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(assignments Store, classes ClassLookup, users UserLookup, opts ...Option) *Service {
	svc := &Service{
		assignments: assignments,
		classes:     classes,
		users:       users,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func errForbidden() error {
	return dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
}

func errNotOwner() error {
	return dErrors.New(dErrors.CodeForbidden, "only the assignment owner can modify this assignment")
}

func errNotFound() error {
	return dErrors.New(dErrors.CodeNotFound, "assignment not found")
}

func translateStoreError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return errNotFound()
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
