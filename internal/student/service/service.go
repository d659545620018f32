// Package service serves read access to Student accounts and their coursework.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	assignmentmodels "schoolbridge/internal/assignment/models"
	authmodels "schoolbridge/internal/auth/models"
	userStore "schoolbridge/internal/auth/store/user"
	"schoolbridge/internal/authz"
	classmodels "schoolbridge/internal/classroom/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
)

type UserLookup interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
	List(ctx context.Context, filter userStore.Filter) ([]*authmodels.User, error)
}

// ClassReader is satisfied by the classroom service.
type ClassReader interface {
	ListForStudent(ctx context.Context, studentID id.UserID) ([]*classmodels.Class, error)
	ListByTeacher(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID) ([]*classmodels.Class, error)
}

// AssignmentReader is satisfied by the assignment service.
type AssignmentReader interface {
	ListForStudent(ctx context.Context, studentID id.UserID) ([]*assignmentmodels.Assignment, error)
}

type Service struct {
	users       UserLookup
	classes     ClassReader
	assignments AssignmentReader
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(users UserLookup, classes ClassReader, assignments AssignmentReader, opts ...Option) *Service {
	svc := &Service{users: users, classes: classes, assignments: assignments}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// List returns the students actor may browse: every student for a SuperAdmin, the school's
// students for an Admin, and for a Teacher the school's students or, when unaffiliated, the
// students of their classes.
func (s *Service) List(ctx context.Context, actor requestcontext.Principal) ([]*authmodels.UserProfile, error) {
	if !authz.Can(actor.Role, authz.ViewStudents) {
		return nil, errForbidden()
	}

	filter := userStore.Filter{Role: id.RoleStudent}
	switch {
	case actor.Role == id.RoleSuperAdmin:
	case actor.SchoolID != nil:
		filter.SchoolID = actor.SchoolID
	case actor.Role == id.RoleTeacher:
		ids, err := s.taughtStudents(ctx, actor)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []*authmodels.UserProfile{}, nil
		}
		filter.IDs = ids
	default:
		return []*authmodels.UserProfile{}, nil
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list students")
	}
	out := make([]*authmodels.UserProfile, len(users))
	for i, u := range users {
		out[i] = authmodels.ToProfile(u)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor requestcontext.Principal, studentID id.UserID) (*authmodels.UserProfile, error) {
	student, err := s.accessible(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	return authmodels.ToProfile(student), nil
}

// Classes returns the classes the student is enrolled in.
func (s *Service) Classes(ctx context.Context, actor requestcontext.Principal, studentID id.UserID) ([]*classmodels.Class, error) {
	if _, err := s.accessible(ctx, actor, studentID); err != nil {
		return nil, err
	}
	return s.classes.ListForStudent(ctx, studentID)
}

// Assignments returns the published assignments of the student's classes. Each carries only
// this student's submission.
func (s *Service) Assignments(ctx context.Context, actor requestcontext.Principal, studentID id.UserID) ([]*assignmentmodels.Assignment, error) {
	if _, err := s.accessible(ctx, actor, studentID); err != nil {
		return nil, err
	}
	return s.assignments.ListForStudent(ctx, studentID)
}

// accessible loads the student and checks actor may see them: the student, their parent,
// a teacher of their school or class, an admin of their school, or a SuperAdmin.
func (s *Service) accessible(ctx context.Context, actor requestcontext.Principal, studentID id.UserID) (*authmodels.User, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNotFound()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if student.Role != id.RoleStudent {
		return nil, errNotFound()
	}

	if authz.InScope(actor, authz.Scope{OwnerID: student.ID, SchoolID: student.SchoolID}) {
		return student, nil
	}
	switch actor.Role {
	case id.RoleTeacher:
		if authz.SameSchool(actor.SchoolID, student.SchoolID) {
			return student, nil
		}
		classes, err := s.classes.ListForStudent(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(classes, func(c *classmodels.Class) bool { return c.IsOwnedBy(actor.UserID) }) {
			return student, nil
		}
	case id.RoleParent:
		parent, err := s.users.FindByID(ctx, actor.UserID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent")
		}
		if slices.Contains(parent.RoleProfile.Children, studentID) {
			return student, nil
		}
	}
	return nil, errForbidden()
}

func (s *Service) taughtStudents(ctx context.Context, actor requestcontext.Principal) ([]id.UserID, error) {
	classes, err := s.classes.ListByTeacher(ctx, actor, actor.UserID)
	if err != nil {
		return nil, err
	}
	var ids []id.UserID
	for _, class := range classes {
		for _, studentID := range class.StudentIDs {
			if !slices.Contains(ids, studentID) {
				ids = append(ids, studentID)
			}
		}
	}
	return ids, nil
}

func errForbidden() error {
	return dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
}

func errNotFound() error {
	return dErrors.New(dErrors.CodeNotFound, "student not found")
}
