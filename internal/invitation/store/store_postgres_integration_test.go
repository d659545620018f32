//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"schoolbridge/internal/invitation/models"
	"schoolbridge/internal/invitation/store"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/testutil"
	"schoolbridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	issuer   id.UserID
	schoolID id.SchoolID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.schoolID = s.postgres.CreateTestSchool(ctx, s.T())
	s.issuer = s.postgres.CreateTestUser(ctx, s.T(), id.RoleAdmin, &s.schoolID)
}

func (s *PostgresStoreSuite) pending(token string, expiresIn time.Duration) *models.Invitation {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Invitation{
		ID:        id.NewInvitationID(),
		Email:     token + "@example.com",
		Role:      id.RoleStudent,
		SchoolID:  &s.schoolID,
		Token:     token,
		Status:    models.StatusPending,
		ExpiresAt: now.Add(expiresIn),
		CreatedBy: s.issuer,
		CreatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestConcurrentConsume() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.pending("race", time.Hour)))

	result := testutil.RunConcurrent(10, func(int) error {
		_, err := s.store.Consume(ctx, "race", time.Now())
		return err
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(9), result.Rejected)
}

func (s *PostgresStoreSuite) TestConsumeExpired() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.pending("old", -time.Minute)))

	_, err := s.store.Consume(ctx, "old", time.Now())
	s.ErrorIs(err, sentinel.ErrExpired)
}

func (s *PostgresStoreSuite) TestDeleteExpiredKeepsAccepted() {
	ctx := context.Background()
	accepted := s.pending("accepted", time.Hour)
	s.Require().NoError(s.store.Create(ctx, accepted))
	_, err := s.store.Consume(ctx, "accepted", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, s.pending("stale", -time.Hour)))

	removed, err := s.store.DeleteExpired(ctx, time.Now().Add(2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.store.FindByID(ctx, accepted.ID)
	s.NoError(err)
}

func (s *PostgresStoreSuite) TestConditionalWritesLoseToConsume() {
	ctx := context.Background()
	inv := s.pending("won", time.Hour)
	s.Require().NoError(s.store.Create(ctx, inv))
	_, err := s.store.Consume(ctx, "won", time.Now())
	s.Require().NoError(err)

	s.ErrorIs(s.store.Revoke(ctx, inv.ID), sentinel.ErrStale)
	fresh := *inv
	fresh.Token = "fresh"
	s.ErrorIs(s.store.Reissue(ctx, &fresh, "won"), sentinel.ErrStale)
	s.ErrorIs(s.store.RecordDelivery(ctx, inv), sentinel.ErrStale)
	s.ErrorIs(s.store.Revoke(ctx, id.NewInvitationID()), sentinel.ErrNotFound)

	stored, err := s.store.FindByID(ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAccepted, stored.Status)
	s.Equal("won", stored.Token)
}
