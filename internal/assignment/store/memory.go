// Package store persists assignments and their submissions.
package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"schoolbridge/internal/assignment/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

type InMemory struct {
	mu          sync.RWMutex
	assignments map[id.AssignmentID]*models.Assignment
}

func NewInMemory() *InMemory {
	return &InMemory{assignments: make(map[id.AssignmentID]*models.Assignment)}
}

func (s *InMemory) Create(_ context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assignments[a.ID]; exists {
		return fmt.Errorf("create assignment: %w", &sentinel.ConflictError{Field: "id"})
	}
	s.assignments[a.ID] = a.Clone()
	return nil
}

// Update writes everything except submissions, which change through UpsertSubmission and Grade.
func (s *InMemory) Update(_ context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.assignments[a.ID]
	if !ok {
		return fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
	}
	next := a.Clone()
	next.Submissions = current.Submissions
	s.assignments[a.ID] = next
	return nil
}

func (s *InMemory) FindByID(_ context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.assignments[assignmentID]; ok {
		return a.Clone(), nil
	}
	return nil, fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
}

// List orders by due date, then creation time.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Assignment, 0)
	for _, a := range s.assignments {
		if filter.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, assignmentID id.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[assignmentID]; !ok {
		return fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
	}
	delete(s.assignments, assignmentID)
	return nil
}

// DeleteByClass removes every assignment of classID and reports how many were removed.
func (s *InMemory) DeleteByClass(_ context.Context, classID id.ClassID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for assignmentID, a := range s.assignments {
		if a.ClassID == classID {
			delete(s.assignments, assignmentID)
			removed++
		}
	}
	return removed, nil
}

// UpsertSubmission stores or replaces a student's submission. A graded submission is final
// and yields sentinel.ErrAlreadyUsed.
func (s *InMemory) UpsertSubmission(_ context.Context, assignmentID id.AssignmentID, sub models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
	}
	idx := slices.IndexFunc(a.Submissions, func(existing models.Submission) bool {
		return existing.StudentID == sub.StudentID
	})
	sub.Grade, sub.GradedAt, sub.Feedback = nil, nil, ""
	if idx < 0 {
		a.Submissions = append(a.Submissions, sub)
		return nil
	}
	if a.Submissions[idx].IsGraded() {
		return fmt.Errorf("submission already graded: %w", sentinel.ErrAlreadyUsed)
	}
	a.Submissions[idx] = sub
	return nil
}

// Grade records a grade on an existing submission. Missing submissions yield sentinel.ErrNotFound.
func (s *InMemory) Grade(_ context.Context, assignmentID id.AssignmentID, studentID id.UserID, grade int, feedback string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
	}
	idx := slices.IndexFunc(a.Submissions, func(existing models.Submission) bool {
		return existing.StudentID == studentID
	})
	if idx < 0 {
		return fmt.Errorf("submission not found: %w", sentinel.ErrNotFound)
	}
	g, t := grade, at
	a.Submissions[idx].Grade = &g
	a.Submissions[idx].Feedback = feedback
	a.Submissions[idx].GradedAt = &t
	return nil
}
