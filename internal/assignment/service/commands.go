package service

import (
	"context"
	"errors"

	"schoolbridge/internal/assignment/models"
	"schoolbridge/internal/authz"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
)

// Create stores an assignment for a class the caller teaches. The teacher in the path must be
// the caller.
func (s *Service) Create(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, req *models.CreateAssignmentRequest) (*models.Assignment, error) {
	if !authz.Can(actor.Role, authz.ManageAssignments) || actor.UserID != teacherID {
		return nil, errForbidden()
	}
	classID := req.ParsedClassID()
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "class not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load class")
	}
	if !class.IsOwnedBy(actor.UserID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the class owner can add assignments")
	}

	now := requesttime.Now(ctx)
	a := &models.Assignment{
		ID:          id.NewAssignmentID(),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		ClassID:     classID,
		TeacherID:   actor.UserID,
		MaxPoints:   models.DefaultMaxPoints,
		Attachments: append([]string{}, req.Attachments...),
		IsPublished: req.IsPublished,
		Submissions: []models.Submission{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.MaxPoints != nil {
		a.MaxPoints = *req.MaxPoints
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assignment")
	}
	s.metrics.IncrementEntityChanges("assignment", "created")
	s.logAudit(ctx, "assignment_created",
		"assignment_id", a.ID.String(), "class_id", classID.String(), "teacher_id", actor.UserID.String())
	return a, nil
}

func (s *Service) Update(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID, req *models.UpdateAssignmentRequest) (*models.Assignment, error) {
	a, err := s.owned(ctx, actor, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.DueDate != nil {
		a.DueDate = req.DueDate.UTC()
	}
	if req.MaxPoints != nil {
		for _, sub := range a.Submissions {
			if sub.IsGraded() && *sub.Grade > *req.MaxPoints {
				return nil, dErrors.WithDetails(dErrors.CodeValidation, "max points is below an existing grade",
					map[string]string{"max_points": "max_points must not be below an existing grade"})
			}
		}
		a.MaxPoints = *req.MaxPoints
	}
	if req.Attachments != nil {
		a.Attachments = append([]string{}, (*req.Attachments)...)
	}
	a.UpdatedAt = requesttime.Now(ctx)

	if err := s.assignments.Update(ctx, a); err != nil {
		return nil, translateStoreError(err, "failed to update assignment")
	}
	s.metrics.IncrementEntityChanges("assignment", "updated")
	return a, nil
}

// Delete removes the assignment and its submissions.
func (s *Service) Delete(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID) error {
	if _, err := s.owned(ctx, actor, teacherID, assignmentID); err != nil {
		return err
	}
	if err := s.assignments.Delete(ctx, assignmentID); err != nil {
		return translateStoreError(err, "failed to delete assignment")
	}
	s.metrics.IncrementEntityChanges("assignment", "deleted")
	s.logAudit(ctx, "assignment_deleted", "assignment_id", assignmentID.String(), "teacher_id", actor.UserID.String())
	return nil
}

// Publish makes the assignment visible to the class. Publishing twice is a no-op.
func (s *Service) Publish(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.owned(ctx, actor, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.IsPublished {
		return a, nil
	}
	a.IsPublished = true
	a.UpdatedAt = requesttime.Now(ctx)
	if err := s.assignments.Update(ctx, a); err != nil {
		return nil, translateStoreError(err, "failed to publish assignment")
	}
	s.metrics.IncrementEntityChanges("assignment", "published")
	s.logAudit(ctx, "assignment_published", "assignment_id", a.ID.String(), "class_id", a.ClassID.String())
	return a, nil
}

// Submit stores the caller's submission. Students may resubmit until the work is graded.
func (s *Service) Submit(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID, req *models.SubmitRequest) (*models.Assignment, error) {
	if !authz.Can(actor.Role, authz.SubmitAssignments) {
		return nil, errForbidden()
	}
	a, err := s.load(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished {
		return nil, errNotFound()
	}
	enrolled, err := s.enrolled(ctx, a.ClassID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, dErrors.New(dErrors.CodeForbidden, "student is not enrolled in this class")
	}

	now := requesttime.Now(ctx)
	sub := models.Submission{StudentID: actor.UserID, SubmittedAt: now, Content: req.Content}
	if err := s.assignments.UpsertSubmission(ctx, assignmentID, sub); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "submission has already been graded")
		}
		return nil, translateStoreError(err, "failed to store submission")
	}
	s.metrics.IncrementEntityChanges("submission", "submitted")
	s.logAudit(ctx, "assignment_submitted",
		"assignment_id", assignmentID.String(), "student_id", actor.UserID.String(), "late", a.IsLate(now))

	stored, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load assignment")
	}
	return stored.ForStudent(actor.UserID), nil
}

// Grade records a grade between 0 and the assignment's max points.
func (s *Service) Grade(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID, req *models.GradeRequest) (*models.Assignment, error) {
	a, err := s.owned(ctx, actor, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := a.CheckGrade(*req.Grade); err != nil {
		return nil, err
	}
	studentID := req.ParsedStudentID()
	if err := s.assignments.Grade(ctx, assignmentID, studentID, *req.Grade, req.Feedback, requesttime.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grade submission")
	}
	s.metrics.IncrementEntityChanges("submission", "graded")
	s.logAudit(ctx, "submission_graded",
		"assignment_id", assignmentID.String(), "student_id", studentID.String(), "teacher_id", actor.UserID.String())

	stored, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load assignment")
	}
	return stored, nil
}

// load finds the assignment and hides it when the path names a different teacher.
func (s *Service) load(ctx context.Context, teacherID id.UserID, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load assignment")
	}
	if a.TeacherID != teacherID {
		return nil, errNotFound()
	}
	return a, nil
}

func (s *Service) owned(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.load(ctx, teacherID, assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsOwnedBy(actor.UserID) {
		return nil, errNotOwner()
	}
	return a, nil
}

func (s *Service) enrolled(ctx context.Context, classID id.ClassID, studentID id.UserID) (bool, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load class")
	}
	return class.HasStudent(studentID), nil
}
