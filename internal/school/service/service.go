package service

import (
	"context"
	"errors"
	"log/slog"

	"schoolbridge/internal/authz"
	"schoolbridge/internal/platform/metrics"
	"schoolbridge/internal/school/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
)

// Store persists schools.
// Error Contract: FindByID and Update return sentinel.ErrNotFound; writes return a
// *sentinel.ConflictError on a duplicate name.
type Store interface {
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	FindByID(ctx context.Context, schoolID id.SchoolID) (*models.School, error)
	List(ctx context.Context) ([]*models.School, error)
}

// Service manages schools. Only SuperAdmins change them; members read their own school.
type Service struct {
	schools Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(schools Store, opts ...Option) *Service {
	svc := &Service{schools: schools}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func (s *Service) Create(ctx context.Context, actor requestcontext.Principal, req *models.CreateSchoolRequest) (*models.School, error) {
	if !authz.Can(actor.Role, authz.ManageSchools) {
		return nil, errForbidden()
	}
	school, err := models.NewSchool(req.Name, models.Settings{
		GradingScheme: models.GradingScheme(req.GradingScheme),
		Timezone:      req.Timezone,
	}, requesttime.Now(ctx))
	if err != nil {
		return nil, err
	}
	school.Address = req.Address
	school.ContactEmail = req.ContactEmail
	school.ContactPhone = req.ContactPhone

	if err := s.schools.Create(ctx, school); err != nil {
		return nil, translateStoreError(err, "failed to create school")
	}
	s.metrics.IncrementEntityChanges("school", "created")
	s.logger.InfoContext(ctx, "school_created",
		"school_id", school.ID.String(), "actor_id", actor.UserID.String(),
		"request_id", requestcontext.RequestID(ctx))
	return school, nil
}

func (s *Service) List(ctx context.Context, actor requestcontext.Principal) ([]*models.School, error) {
	if !authz.Can(actor.Role, authz.ManageSchools) {
		return nil, errForbidden()
	}
	schools, err := s.schools.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list schools")
	}
	return schools, nil
}

// Get returns a school to a SuperAdmin or to any member of that school.
func (s *Service) Get(ctx context.Context, actor requestcontext.Principal, schoolID id.SchoolID) (*models.School, error) {
	if !authz.Can(actor.Role, authz.ManageSchools) && !authz.SameSchool(actor.SchoolID, &schoolID) {
		return nil, errForbidden()
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load school")
	}
	return school, nil
}

func (s *Service) Update(ctx context.Context, actor requestcontext.Principal, schoolID id.SchoolID, req *models.UpdateSchoolRequest) (*models.School, error) {
	if !authz.Can(actor.Role, authz.ManageSchools) {
		return nil, errForbidden()
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load school")
	}

	now := requesttime.Now(ctx)
	applyUpdate(school, req)
	if req.IsActive != nil && *req.IsActive != school.IsActive {
		if *req.IsActive {
			err = school.Reactivate(now)
		} else {
			err = school.Deactivate(now)
		}
		if err != nil {
			return nil, err
		}
	}
	school.UpdatedAt = now

	if err := s.schools.Update(ctx, school); err != nil {
		return nil, translateStoreError(err, "failed to update school")
	}
	s.metrics.IncrementEntityChanges("school", "updated")
	return school, nil
}

func applyUpdate(school *models.School, req *models.UpdateSchoolRequest) {
	if req.Name != nil {
		school.Name = *req.Name
	}
	if req.Address != nil {
		school.Address = *req.Address
	}
	if req.ContactEmail != nil {
		school.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		school.ContactPhone = *req.ContactPhone
	}
	if req.GradingScheme != nil {
		school.GradingScheme = models.GradingScheme(*req.GradingScheme)
	}
	if req.Timezone != nil && *req.Timezone != "" {
		school.Timezone = *req.Timezone
	}
}

func errForbidden() error {
	return dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
}

func translateStoreError(err error, msg string) error {
	var conflict *sentinel.ConflictError
	switch {
	case errors.As(err, &conflict):
		return dErrors.WithDetails(dErrors.CodeConflict, "school name already exists",
			map[string]string{conflict.Field: "already exists"})
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "school not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
