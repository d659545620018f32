// Package store persists classes and their enrolments.
package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"schoolbridge/internal/classroom/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	classes map[id.ClassID]*models.Class
}

func NewInMemory() *InMemory {
	return &InMemory{classes: make(map[id.ClassID]*models.Class)}
}

func (s *InMemory) Create(_ context.Context, class *models.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.classes[class.ID]; exists {
		return fmt.Errorf("create class: %w", &sentinel.ConflictError{Field: "id"})
	}
	s.classes[class.ID] = class.Clone()
	return nil
}

// Update writes the descriptive fields. Enrolment changes go through AddStudents and RemoveStudent.
func (s *InMemory) Update(_ context.Context, class *models.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.classes[class.ID]
	if !ok {
		return fmt.Errorf("class not found: %w", sentinel.ErrNotFound)
	}
	current.Name = class.Name
	current.Subject = class.Subject
	current.Schedule = class.Schedule
	current.Room = class.Room
	current.UpdatedAt = class.UpdatedAt
	return nil
}

func (s *InMemory) FindByID(_ context.Context, classID id.ClassID) (*models.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if class, ok := s.classes[classID]; ok {
		return class.Clone(), nil
	}
	return nil, fmt.Errorf("class not found: %w", sentinel.ErrNotFound)
}

func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Class, 0)
	for _, class := range s.classes {
		if filter.Matches(class) {
			out = append(out, class.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// AddStudents enrols studentIDs, ignoring ones already enrolled. It returns how many were new.
func (s *InMemory) AddStudents(_ context.Context, classID id.ClassID, studentIDs []id.UserID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	class, ok := s.classes[classID]
	if !ok {
		return 0, fmt.Errorf("class not found: %w", sentinel.ErrNotFound)
	}
	added := 0
	for _, studentID := range studentIDs {
		if !class.HasStudent(studentID) {
			class.StudentIDs = append(class.StudentIDs, studentID)
			added++
		}
	}
	if added > 0 {
		class.UpdatedAt = now
	}
	return added, nil
}

func (s *InMemory) RemoveStudent(_ context.Context, classID id.ClassID, studentID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	class, ok := s.classes[classID]
	if !ok {
		return fmt.Errorf("class not found: %w", sentinel.ErrNotFound)
	}
	idx := slices.Index(class.StudentIDs, studentID)
	if idx < 0 {
		return fmt.Errorf("enrolment not found: %w", sentinel.ErrNotFound)
	}
	class.StudentIDs = slices.Delete(class.StudentIDs, idx, idx+1)
	return nil
}

func (s *InMemory) Delete(_ context.Context, classID id.ClassID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[classID]; !ok {
		return fmt.Errorf("class not found: %w", sentinel.ErrNotFound)
	}
	delete(s.classes, classID)
	return nil
}
