package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"schoolbridge/internal/invitation/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) pending(email, token string) *models.Invitation {
	return &models.Invitation{
		ID:        id.NewInvitationID(),
		Email:     email,
		Role:      id.RoleTeacher,
		Token:     token,
		Status:    models.StatusPending,
		ExpiresAt: s.now.Add(72 * time.Hour),
		CreatedBy: id.NewUserID(),
		CreatedAt: s.now,
	}
}

func (s *InMemoryStoreSuite) TestConsume() {
	inv := s.pending("t@example.com", "tok-1")
	s.Require().NoError(s.store.Create(s.ctx, inv))

	s.Run("accepts pending unexpired token", func() {
		consumed, err := s.store.Consume(s.ctx, "tok-1", s.now)
		s.Require().NoError(err)
		s.Equal(models.StatusAccepted, consumed.Status)
		s.Require().NotNil(consumed.AcceptedAt)
	})

	s.Run("replay is rejected", func() {
		_, err := s.store.Consume(s.ctx, "tok-1", s.now)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown token", func() {
		_, err := s.store.Consume(s.ctx, "nope", s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("expired token", func() {
		old := s.pending("old@example.com", "tok-old")
		old.ExpiresAt = s.now.Add(-time.Second)
		s.Require().NoError(s.store.Create(s.ctx, old))
		_, err := s.store.Consume(s.ctx, "tok-old", s.now)
		s.ErrorIs(err, sentinel.ErrExpired)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentConsumeHasSingleWinner() {
	s.Require().NoError(s.store.Create(s.ctx, s.pending("race@example.com", "tok-race")))

	result := testutil.RunConcurrent(25, func(int) error {
		_, err := s.store.Consume(s.ctx, "tok-race", s.now)
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(24), result.Rejected)
}

func (s *InMemoryStoreSuite) TestRestore() {
	inv := s.pending("r@example.com", "tok-r")
	s.Require().NoError(s.store.Create(s.ctx, inv))
	_, err := s.store.Consume(s.ctx, "tok-r", s.now)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Restore(s.ctx, inv.ID))
	found, err := s.store.FindByToken(s.ctx, "tok-r")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.Nil(found.AcceptedAt)

	s.ErrorIs(s.store.Restore(s.ctx, inv.ID), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDeleteExpiredKeepsAccepted() {
	expiredPending := s.pending("a@example.com", "a")
	expiredPending.ExpiresAt = s.now.Add(-time.Hour)
	expiredFailed := s.pending("b@example.com", "b")
	expiredFailed.Status = models.StatusFailed
	expiredFailed.ExpiresAt = s.now.Add(-time.Hour)
	acceptedOld := s.pending("c@example.com", "c")
	acceptedOld.Status = models.StatusAccepted
	acceptedOld.ExpiresAt = s.now.Add(-30 * 24 * time.Hour)
	live := s.pending("d@example.com", "d")
	for _, inv := range []*models.Invitation{expiredPending, expiredFailed, acceptedOld, live} {
		s.Require().NoError(s.store.Create(s.ctx, inv))
	}

	removed, err := s.store.DeleteExpired(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(2, removed)

	_, err = s.store.FindByID(s.ctx, acceptedOld.ID)
	s.NoError(err)
	_, err = s.store.FindByID(s.ctx, live.ID)
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestListScopesAndStatus() {
	school := id.NewSchoolID()
	teacher := s.pending("t@example.com", "t")
	teacher.SchoolID = &school
	admin := s.pending("admin@example.com", "adm")
	admin.Role = id.RoleAdmin
	stale := s.pending("s@example.com", "s")
	stale.SchoolID = &school
	stale.ExpiresAt = s.now.Add(-time.Minute)
	for _, inv := range []*models.Invitation{teacher, admin, stale} {
		s.Require().NoError(s.store.Create(s.ctx, inv))
	}

	admins, err := s.store.List(s.ctx, models.ListFilter{Roles: []id.Role{id.RoleAdmin}}, s.now)
	s.Require().NoError(err)
	s.Require().Len(admins, 1)
	s.Equal(admin.ID, admins[0].ID)

	scoped, err := s.store.List(s.ctx, models.ListFilter{SchoolID: &school}, s.now)
	s.Require().NoError(err)
	s.Len(scoped, 2)

	expired, err := s.store.List(s.ctx, models.ListFilter{Status: models.StatusExpired}, s.now)
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Equal(stale.ID, expired[0].ID)
}

func (s *InMemoryStoreSuite) TestFindActionableByEmail() {
	s.Require().NoError(s.store.Create(s.ctx, s.pending("p@example.com", "p")))

	_, err := s.store.FindActionableByEmail(s.ctx, "p@example.com", s.now)
	s.NoError(err)
	_, err = s.store.FindActionableByEmail(s.ctx, "p@example.com", s.now.Add(73*time.Hour))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestConditionalWritesLoseToConsume() {
	inv := s.pending("won@example.com", "tok-won")
	s.Require().NoError(s.store.Create(s.ctx, inv))
	_, err := s.store.Consume(s.ctx, "tok-won", s.now)
	s.Require().NoError(err)

	s.ErrorIs(s.store.Revoke(s.ctx, inv.ID), sentinel.ErrStale)

	fresh := *inv
	fresh.Token = "tok-fresh"
	s.ErrorIs(s.store.Reissue(s.ctx, &fresh, "tok-won"), sentinel.ErrStale)

	sentAt := s.now
	delivered := *inv
	delivered.Status = models.StatusFailed
	delivered.LastSentAt = &sentAt
	s.ErrorIs(s.store.RecordDelivery(s.ctx, &delivered), sentinel.ErrStale)

	stored, err := s.store.FindByID(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAccepted, stored.Status)
	s.Equal("tok-won", stored.Token)

	removed, err := s.store.DeleteExpired(s.ctx, s.now.Add(100*time.Hour))
	s.Require().NoError(err)
	s.Zero(removed)
}

func (s *InMemoryStoreSuite) TestReissueRequiresCurrentToken() {
	inv := s.pending("again@example.com", "tok-1")
	s.Require().NoError(s.store.Create(s.ctx, inv))

	next := *inv
	next.Token = "tok-2"
	next.ExpiresAt = s.now.Add(144 * time.Hour)
	s.Require().NoError(s.store.Reissue(s.ctx, &next, "tok-1"))

	stale := *inv
	stale.Token = "tok-3"
	s.ErrorIs(s.store.Reissue(s.ctx, &stale, "tok-1"), sentinel.ErrStale)

	stored, err := s.store.FindByID(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal("tok-2", stored.Token)
	s.Equal(next.ExpiresAt, stored.ExpiresAt)

	other := s.pending("other@example.com", "tok-other")
	s.Require().NoError(s.store.Create(s.ctx, other))
	clash := *inv
	clash.Token = "tok-other"
	s.ErrorIs(s.store.Reissue(s.ctx, &clash, "tok-2"), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestRevoke() {
	inv := s.pending("bye@example.com", "tok-bye")
	s.Require().NoError(s.store.Create(s.ctx, inv))

	s.Require().NoError(s.store.Revoke(s.ctx, inv.ID))
	stored, err := s.store.FindByID(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, stored.Status)

	s.ErrorIs(s.store.Revoke(s.ctx, inv.ID), sentinel.ErrStale)
	s.ErrorIs(s.store.Revoke(s.ctx, id.NewInvitationID()), sentinel.ErrNotFound)
}
