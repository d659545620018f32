// Package store persists schools. Names are unique case-insensitively.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"schoolbridge/internal/school/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	schools map[id.SchoolID]*models.School
	nameIdx map[string]id.SchoolID
}

func NewInMemory() *InMemory {
	return &InMemory{
		schools: make(map[id.SchoolID]*models.School),
		nameIdx: make(map[string]id.SchoolID),
	}
}

func (s *InMemory) Create(_ context.Context, school *models.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(school.Name)
	if _, taken := s.nameIdx[key]; taken {
		return fmt.Errorf("create school: %w", &sentinel.ConflictError{Field: "name"})
	}
	c := *school
	s.schools[school.ID] = &c
	s.nameIdx[key] = school.ID
	return nil
}

func (s *InMemory) Update(_ context.Context, school *models.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.schools[school.ID]
	if !ok {
		return fmt.Errorf("school not found: %w", sentinel.ErrNotFound)
	}
	key := strings.ToLower(school.Name)
	if owner, taken := s.nameIdx[key]; taken && owner != school.ID {
		return fmt.Errorf("update school: %w", &sentinel.ConflictError{Field: "name"})
	}
	delete(s.nameIdx, strings.ToLower(current.Name))
	c := *school
	s.schools[school.ID] = &c
	s.nameIdx[key] = school.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, schoolID id.SchoolID) (*models.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if school, ok := s.schools[schoolID]; ok {
		c := *school
		return &c, nil
	}
	return nil, fmt.Errorf("school not found: %w", sentinel.ErrNotFound)
}

// List returns all schools ordered by name.
func (s *InMemory) List(_ context.Context) ([]*models.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.School, 0, len(s.schools))
	for _, school := range s.schools {
		c := *school
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}
