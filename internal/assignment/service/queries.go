package service

import (
	"context"
	"errors"

	"schoolbridge/internal/assignment/models"
	"schoolbridge/internal/authz"
	classmodels "schoolbridge/internal/classroom/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
)

// List returns every assignment of teacherID to the teacher, an admin of their school, or a
// SuperAdmin.
func (s *Service) List(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID) ([]*models.Assignment, error) {
	if err := s.checkTeacherScope(ctx, actor, teacherID); err != nil {
		return nil, err
	}
	out, err := s.assignments.List(ctx, models.Filter{TeacherID: &teacherID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assignments")
	}
	return out, nil
}

// Get returns the assignment. Enrolled students see it once published, with only their own
// submission.
func (s *Service) Get(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.load(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role == id.RoleStudent {
		if !a.IsPublished {
			return nil, errNotFound()
		}
		enrolled, err := s.enrolled(ctx, a.ClassID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, errForbidden()
		}
		return a.ForStudent(actor.UserID), nil
	}
	if err := s.checkTeacherScope(ctx, actor, teacherID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListForStudent returns the published assignments of studentID's classes, each carrying only
// that student's submission. Access is checked by the caller.
func (s *Service) ListForStudent(ctx context.Context, studentID id.UserID) ([]*models.Assignment, error) {
	classes, err := s.classes.List(ctx, classmodels.Filter{StudentIDs: []id.UserID{studentID}})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list classes")
	}
	if len(classes) == 0 {
		return []*models.Assignment{}, nil
	}
	classIDs := make([]id.ClassID, len(classes))
	for i, class := range classes {
		classIDs[i] = class.ID
	}

	all, err := s.assignments.List(ctx, models.Filter{ClassIDs: classIDs, PublishedOnly: true})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assignments")
	}
	out := make([]*models.Assignment, len(all))
	for i, a := range all {
		out[i] = a.ForStudent(studentID)
	}
	return out, nil
}

func (s *Service) checkTeacherScope(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID) error {
	if actor.UserID == teacherID {
		return nil
	}
	teacher, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "teacher not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load teacher")
	}
	if !authz.InScope(actor, authz.Scope{OwnerID: teacher.ID, SchoolID: teacher.SchoolID}) {
		return errForbidden()
	}
	return nil
}
