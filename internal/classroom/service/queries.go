package service

import (
	"context"
	"errors"

	"schoolbridge/internal/authz"
	"schoolbridge/internal/classroom/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
)

// List returns the classes visible to actor: a teacher's own, an admin's school, a student's
// enrolments, a parent's children's enrolments, or everything for a SuperAdmin.
func (s *Service) List(ctx context.Context, actor requestcontext.Principal) ([]*models.Class, error) {
	if !authz.Can(actor.Role, authz.ViewClasses) && !authz.Can(actor.Role, authz.ManageClasses) {
		return nil, errForbidden()
	}

	var filter models.Filter
	switch actor.Role {
	case id.RoleSuperAdmin:
	case id.RoleAdmin:
		if actor.SchoolID == nil {
			return []*models.Class{}, nil
		}
		filter.SchoolID = actor.SchoolID
	case id.RoleTeacher:
		filter.TeacherID = &actor.UserID
	case id.RoleStudent:
		filter.StudentIDs = []id.UserID{actor.UserID}
	case id.RoleParent:
		children, err := s.children(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return []*models.Class{}, nil
		}
		filter.StudentIDs = children
	default:
		return nil, errForbidden()
	}

	classes, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list classes")
	}
	return classes, nil
}

func (s *Service) Get(ctx context.Context, actor requestcontext.Principal, classID id.ClassID) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load class")
	}
	ok, err := s.canView(ctx, actor, class)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errForbidden()
	}
	return class, nil
}

// ListByTeacher implements GET /teachers/{id}/classes for the teacher, an admin of the
// teacher's school, or a SuperAdmin.
func (s *Service) ListByTeacher(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID) ([]*models.Class, error) {
	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "teacher not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load teacher")
	}
	if teacher.Role != id.RoleTeacher {
		return nil, dErrors.New(dErrors.CodeNotFound, "teacher not found")
	}
	if !authz.InScope(actor, authz.Scope{OwnerID: teacher.ID, SchoolID: teacher.SchoolID}) {
		return nil, errForbidden()
	}

	classes, err := s.classes.List(ctx, models.Filter{TeacherID: &teacherID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list classes")
	}
	return classes, nil
}

// ListForStudent returns the classes studentID is enrolled in. Access is checked by the caller.
func (s *Service) ListForStudent(ctx context.Context, studentID id.UserID) ([]*models.Class, error) {
	classes, err := s.classes.List(ctx, models.Filter{StudentIDs: []id.UserID{studentID}})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list classes")
	}
	return classes, nil
}

func (s *Service) canView(ctx context.Context, actor requestcontext.Principal, class *models.Class) (bool, error) {
	switch actor.Role {
	case id.RoleSuperAdmin:
		return true, nil
	case id.RoleAdmin:
		return authz.SameSchool(actor.SchoolID, class.SchoolID), nil
	case id.RoleTeacher:
		return class.IsOwnedBy(actor.UserID) || authz.SameSchool(actor.SchoolID, class.SchoolID), nil
	case id.RoleStudent:
		return class.HasStudent(actor.UserID), nil
	case id.RoleParent:
		children, err := s.children(ctx, actor.UserID)
		if err != nil {
			return false, err
		}
		return class.HasAnyStudent(children), nil
	}
	return false, nil
}

func (s *Service) children(ctx context.Context, parentID id.UserID) ([]id.UserID, error) {
	parent, err := s.users.FindByID(ctx, parentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent")
	}
	return parent.RoleProfile.Children, nil
}
