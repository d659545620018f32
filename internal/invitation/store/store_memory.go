// Package store persists invitations. Consume is the single-use gate: it flips a pending,
// unexpired invitation to accepted atomically, so concurrent activations see one winner.
package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"schoolbridge/internal/invitation/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu          sync.Mutex
	invitations map[id.InvitationID]*models.Invitation
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{invitations: make(map[id.InvitationID]*models.Invitation)}
}

func (s *InMemoryStore) Create(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invitations {
		if existing.Token == inv.Token {
			return fmt.Errorf("create invitation: %w", &sentinel.ConflictError{Field: "token"})
		}
	}
	s.invitations[inv.ID] = clone(inv)
	return nil
}

func (s *InMemoryStore) Reissue(_ context.Context, inv *models.Invitation, previousToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.reopenableLocked(inv.ID, previousToken)
	if err != nil {
		return fmt.Errorf("reissue invitation: %w", err)
	}
	for _, existing := range s.invitations {
		if existing.ID != inv.ID && existing.Token == inv.Token {
			return fmt.Errorf("reissue invitation: %w", &sentinel.ConflictError{Field: "token"})
		}
	}
	stored.Token = inv.Token
	stored.Status = models.StatusPending
	stored.ErrorDetail = ""
	stored.ExpiresAt = inv.ExpiresAt
	return nil
}

func (s *InMemoryStore) RecordDelivery(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.reopenableLocked(inv.ID, inv.Token)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	stored.Status = inv.Status
	stored.ErrorDetail = inv.ErrorDetail
	if inv.LastSentAt != nil {
		t := *inv.LastSentAt
		stored.LastSentAt = &t
	}
	stored.SendCount++
	return nil
}

func (s *InMemoryStore) Revoke(_ context.Context, invitationID id.InvitationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.invitations[invitationID]
	if !ok {
		return fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
	}
	if !mutable(stored.Status) {
		return fmt.Errorf("revoke invitation: %w", sentinel.ErrStale)
	}
	stored.Status = models.StatusRevoked
	return nil
}

// reopenableLocked returns the stored invitation when it is still pending or failed and
// carries token.
func (s *InMemoryStore) reopenableLocked(invitationID id.InvitationID, token string) (*models.Invitation, error) {
	stored, ok := s.invitations[invitationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !mutable(stored.Status) || stored.Token != token {
		return nil, sentinel.ErrStale
	}
	return stored, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, invitationID id.InvitationID) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.invitations[invitationID]; ok {
		return clone(inv), nil
	}
	return nil, fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByToken(_ context.Context, token string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv := s.byTokenLocked(token); inv != nil {
		return clone(inv), nil
	}
	return nil, fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindActionableByEmail(_ context.Context, email string, now time.Time) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.Email == email && inv.IsActionable(now) {
			return clone(inv), nil
		}
	}
	return nil, fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
}

// List returns matching invitations, newest first. Filtering on StatusExpired also
// matches pending invitations whose expiry has passed.
func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter, now time.Time) ([]*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Invitation, 0)
	for _, inv := range s.invitations {
		if len(filter.Roles) > 0 && !slices.Contains(filter.Roles, inv.Role) {
			continue
		}
		if filter.SchoolID != nil && (inv.SchoolID == nil || *inv.SchoolID != *filter.SchoolID) {
			continue
		}
		if filter.Status != "" && inv.EffectiveStatus(now) != filter.Status {
			continue
		}
		out = append(out, clone(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Consume(_ context.Context, token string, now time.Time) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.byTokenLocked(token)
	if inv == nil {
		return nil, fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
	}
	if err := consumable(inv, now); err != nil {
		return nil, err
	}
	inv.Status = models.StatusAccepted
	acceptedAt := now
	inv.AcceptedAt = &acceptedAt
	return clone(inv), nil
}

func (s *InMemoryStore) Restore(_ context.Context, invitationID id.InvitationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[invitationID]
	if !ok || inv.Status != models.StatusAccepted {
		return fmt.Errorf("restore invitation: %w", sentinel.ErrNotFound)
	}
	inv.Status = models.StatusPending
	inv.AcceptedAt = nil
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for invID, inv := range s.invitations {
		if inv.ExpiresAt.Before(now) && inv.Status != models.StatusAccepted {
			delete(s.invitations, invID)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) byTokenLocked(token string) *models.Invitation {
	for _, inv := range s.invitations {
		if inv.Token == token {
			return inv
		}
	}
	return nil
}

// mutable reports whether status still accepts conditional writes.
func mutable(status models.Status) bool {
	return status == models.StatusPending || status == models.StatusFailed
}

// consumable classifies why an invitation cannot be consumed.
func consumable(inv *models.Invitation, now time.Time) error {
	switch {
	case inv.Status == models.StatusAccepted:
		return fmt.Errorf("consume invitation: %w", sentinel.ErrAlreadyUsed)
	case inv.Status != models.StatusPending:
		return fmt.Errorf("consume invitation: %w", sentinel.ErrNotFound)
	case !now.Before(inv.ExpiresAt):
		return fmt.Errorf("consume invitation: %w", sentinel.ErrExpired)
	}
	return nil
}

func clone(inv *models.Invitation) *models.Invitation {
	c := *inv
	if inv.SchoolID != nil {
		school := *inv.SchoolID
		c.SchoolID = &school
	}
	if inv.AcceptedAt != nil {
		t := *inv.AcceptedAt
		c.AcceptedAt = &t
	}
	if inv.LastSentAt != nil {
		t := *inv.LastSentAt
		c.LastSentAt = &t
	}
	return &c
}
