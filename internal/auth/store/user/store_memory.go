package user

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in memory. It stores and returns copies so callers
// cannot mutate shared state without going through Update.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueLocked(user); err != nil {
		return err
	}
	s.users[user.ID] = clone(user)
	return nil
}

func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	if err := s.checkUniqueLocked(user); err != nil {
		return err
	}
	// token_version, is_active and last_login only move through their own methods
	updated := clone(user)
	updated.TokenVersion = existing.TokenVersion
	updated.IsActive = existing.IsActive
	updated.LastLogin = existing.LastLogin
	s.users[user.ID] = updated
	return nil
}

func (s *InMemoryUserStore) RecordLogin(_ context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	if !user.IsActive {
		return fmt.Errorf("record login: %w", sentinel.ErrStale)
	}
	user.RecordLogin(at)
	return nil
}

func (s *InMemoryUserStore) SetActive(_ context.Context, userID id.UserID, active bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.IsActive = active
	user.UpdatedAt = at
	return nil
}

func (s *InMemoryUserStore) checkUniqueLocked(user *models.User) error {
	for _, existing := range s.users {
		if existing.ID == user.ID {
			continue
		}
		if existing.Email == user.Email {
			return fmt.Errorf("save user: %w", &sentinel.ConflictError{Field: "email"})
		}
		if user.GoogleID != "" && existing.GoogleID == user.GoogleID {
			return fmt.Errorf("save user: %w", &sentinel.ConflictError{Field: "googleId"})
		}
	}
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return clone(user), nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return clone(user), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// FindByEmailOrGoogleID prefers an email match over a Google ID match.
func (s *InMemoryUserStore) FindByEmailOrGoogleID(ctx context.Context, email, googleID string) (*models.User, error) {
	if u, err := s.FindByEmail(ctx, email); err == nil {
		return u, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if googleID != "" {
		for _, user := range s.users {
			if user.GoogleID == googleID {
				return clone(user), nil
			}
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) BumpTokenVersion(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return 0, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.TokenVersion++
	return user.TokenVersion, nil
}

func (s *InMemoryUserStore) List(_ context.Context, filter Filter) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0)
	for _, user := range s.users {
		if matches(user, filter) {
			out = append(out, clone(user))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName == out[j].FullName {
			return out[i].Email < out[j].Email
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

func matches(u *models.User, f Filter) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.SchoolID != nil && !u.BelongsTo(*f.SchoolID) {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, u.ID) {
		return false
	}
	return true
}

func clone(u *models.User) *models.User {
	c := *u
	if u.SchoolID != nil {
		school := *u.SchoolID
		c.SchoolID = &school
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	c.RoleProfile.Subjects = slices.Clone(u.RoleProfile.Subjects)
	c.RoleProfile.Children = slices.Clone(u.RoleProfile.Children)
	return &c
}
