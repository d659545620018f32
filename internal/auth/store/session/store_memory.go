package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

// InMemorySessionStore is a mutex-guarded session store for development and tests.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[id.SessionID]*models.Session
}

func New() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.SessionID]*models.Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.TokenHash == session.TokenHash {
			return fmt.Errorf("create session: %w", &sentinel.ConflictError{Field: "token"})
		}
	}
	c := *session
	s.sessions[session.ID] = &c
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	c := *session
	return &c, nil
}

func (s *InMemorySessionStore) Rotate(_ context.Context, sessionID id.SessionID, oldHash, newHash string, usedAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if session.TokenHash != oldHash {
		return fmt.Errorf("rotate session: %w", sentinel.ErrStale)
	}
	session.TokenHash = newHash
	session.LastUsedAt = usedAt
	session.ExpiresAt = expiresAt
	return nil
}

func (s *InMemorySessionStore) DeleteByTokenHash(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sid, session := range s.sessions {
		if session.TokenHash == hash {
			delete(s.sessions, sid)
			return nil
		}
	}
	return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemorySessionStore) DeleteByUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for sid, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed, nil
}

// ListByUser returns the user's sessions, most recently used first.
func (s *InMemorySessionStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Session, 0)
	for _, session := range s.sessions {
		if session.UserID == userID {
			c := *session
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out, nil
}

func (s *InMemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for sid, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed, nil
}
