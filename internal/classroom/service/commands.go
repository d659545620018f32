package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	authmodels "schoolbridge/internal/auth/models"
	userStore "schoolbridge/internal/auth/store/user"
	"schoolbridge/internal/authz"
	"schoolbridge/internal/classroom/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
)

// Create stores a class owned by actor. The school is the teacher's own.
func (s *Service) Create(ctx context.Context, actor requestcontext.Principal, req *models.CreateClassRequest) (*models.Class, error) {
	if !authz.Can(actor.Role, authz.ManageClasses) {
		return nil, errForbidden()
	}
	now := requesttime.Now(ctx)
	class := &models.Class{
		ID:         id.NewClassID(),
		Name:       req.Name,
		Subject:    req.Subject,
		TeacherID:  actor.UserID,
		SchoolID:   actor.SchoolID,
		StudentIDs: []id.UserID{},
		Schedule:   req.Schedule,
		Room:       req.Room,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create class")
	}
	s.metrics.IncrementEntityChanges("class", "created")
	s.logAudit(ctx, "class_created", "class_id", class.ID.String(), "teacher_id", actor.UserID.String())
	return class, nil
}

func (s *Service) Update(ctx context.Context, actor requestcontext.Principal, classID id.ClassID, req *models.UpdateClassRequest) (*models.Class, error) {
	class, err := s.owned(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Subject != nil {
		class.Subject = *req.Subject
	}
	if req.Schedule != nil {
		class.Schedule = *req.Schedule
	}
	if req.Room != nil {
		class.Room = *req.Room
	}
	class.UpdatedAt = requesttime.Now(ctx)

	if err := s.classes.Update(ctx, class); err != nil {
		return nil, translateStoreError(err, "failed to update class")
	}
	s.metrics.IncrementEntityChanges("class", "updated")
	return class, nil
}

// Delete removes the class together with its assignments and their submissions in one
// transaction.
func (s *Service) Delete(ctx context.Context, actor requestcontext.Principal, classID id.ClassID) error {
	var removed int
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.owned(txCtx, actor, classID); err != nil {
			return err
		}
		n, err := s.assignments.DeleteByClass(txCtx, classID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete class assignments")
		}
		if err := s.classes.Delete(txCtx, classID); err != nil {
			return translateStoreError(err, "failed to delete class")
		}
		removed = n
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementEntityChanges("class", "deleted")
	s.logAudit(ctx, "class_deleted",
		"class_id", classID.String(), "teacher_id", actor.UserID.String(), "assignments_removed", removed)
	return nil
}

// AddStudents enrols existing, active Student accounts. When the class belongs to a school,
// students must belong to it too.
func (s *Service) AddStudents(ctx context.Context, actor requestcontext.Principal, classID id.ClassID, studentIDs []id.UserID) (*models.Class, error) {
	class, err := s.owned(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	found, err := s.users.List(ctx, userStore.Filter{Role: id.RoleStudent, IDs: studentIDs})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load students")
	}
	var invalid []string
	for _, studentID := range studentIDs {
		idx := slices.IndexFunc(found, func(u *authmodels.User) bool { return u.ID == studentID })
		switch {
		case idx < 0, !found[idx].IsActive:
			invalid = append(invalid, studentID.String())
		case class.SchoolID != nil && !found[idx].BelongsTo(*class.SchoolID):
			invalid = append(invalid, studentID.String())
		}
	}
	if len(invalid) > 0 {
		return nil, dErrors.WithDetails(dErrors.CodeValidation, "some students cannot be enrolled",
			map[string]string{"student_ids": fmt.Sprintf("not active students of this school: %s", strings.Join(invalid, ", "))})
	}

	added, err := s.classes.AddStudents(ctx, classID, studentIDs, requesttime.Now(ctx))
	if err != nil {
		return nil, translateStoreError(err, "failed to add students")
	}
	if added > 0 {
		s.metrics.IncrementEntityChanges("enrolment", "created")
	}
	return s.reload(ctx, classID)
}

func (s *Service) RemoveStudent(ctx context.Context, actor requestcontext.Principal, classID id.ClassID, studentID id.UserID) (*models.Class, error) {
	if _, err := s.owned(ctx, actor, classID); err != nil {
		return nil, err
	}
	if err := s.classes.RemoveStudent(ctx, classID, studentID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student is not enrolled in this class")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove student")
	}
	s.metrics.IncrementEntityChanges("enrolment", "deleted")
	return s.reload(ctx, classID)
}

// owned loads the class and requires actor to be its teacher.
func (s *Service) owned(ctx context.Context, actor requestcontext.Principal, classID id.ClassID) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load class")
	}
	if !class.IsOwnedBy(actor.UserID) {
		return nil, errNotOwner()
	}
	return class, nil
}

func (s *Service) reload(ctx context.Context, classID id.ClassID) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load class")
	}
	return class, nil
}
