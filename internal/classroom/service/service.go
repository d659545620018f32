package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	authmodels "schoolbridge/internal/auth/models"
	userStore "schoolbridge/internal/auth/store/user"
	"schoolbridge/internal/classroom/models"
	"schoolbridge/internal/platform/metrics"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
)

// Store persists classes.
// Error Contract: FindByID, Update, RemoveStudent and Delete return sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	FindByID(ctx context.Context, classID id.ClassID) (*models.Class, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Class, error)
	AddStudents(ctx context.Context, classID id.ClassID, studentIDs []id.UserID, now time.Time) (int, error)
	RemoveStudent(ctx context.Context, classID id.ClassID, studentID id.UserID) error
	Delete(ctx context.Context, classID id.ClassID) error
}

// UserLookup resolves teachers, students and a parent's children.
type UserLookup interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
	List(ctx context.Context, filter userStore.Filter) ([]*authmodels.User, error)
}

// AssignmentRemover deletes a class's assignments inside the class delete transaction.
type AssignmentRemover interface {
	DeleteByClass(ctx context.Context, classID id.ClassID) (int, error)
}

type Service struct {
	classes     Store
	users       UserLookup
	assignments AssignmentRemover
	tx          StoreTx
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

// WithTx sets the transaction boundary for deletes. The default serializes in memory.
func WithTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

func New(classes Store, users UserLookup, assignments AssignmentRemover, opts ...Option) *Service {
	svc := &Service{
		classes:     classes,
		users:       users,
		assignments: assignments,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.tx == nil {
		svc.tx = &inMemoryStoreTx{}
	}
	return svc
}

func errForbidden() error {
	return dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
}

func errNotOwner() error {
	return dErrors.New(dErrors.CodeForbidden, "only the class owner can modify this class")
}

func translateStoreError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "class not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
