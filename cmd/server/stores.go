package main

import (
	"context"
	"time"

	assignmentService "schoolbridge/internal/assignment/service"
	assignmentStore "schoolbridge/internal/assignment/store"
	authService "schoolbridge/internal/auth/service"
	sessionStore "schoolbridge/internal/auth/store/session"
	userStore "schoolbridge/internal/auth/store/user"
	classroomService "schoolbridge/internal/classroom/service"
	classroomStore "schoolbridge/internal/classroom/store"
	invitationService "schoolbridge/internal/invitation/service"
	invitationStore "schoolbridge/internal/invitation/store"
	"schoolbridge/internal/platform/database"
	"schoolbridge/internal/platform/redis"
	rlmiddleware "schoolbridge/internal/ratelimit/middleware"
	"schoolbridge/internal/ratelimit/store/bucket"
	schoolService "schoolbridge/internal/school/service"
	schoolStore "schoolbridge/internal/school/store"
)

type sessions interface {
	authService.SessionStore
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type invitations interface {
	invitationService.Store
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type assignments interface {
	assignmentService.Store
	classroomService.AssignmentRemover
}

// stores is the persistence backend chosen from configuration.
type stores struct {
	users       authService.UserStore
	sessions    sessions
	invitations invitations
	schools     schoolService.Store
	classes     classroomService.Store
	assignments assignments
	classTx     classroomService.StoreTx

	buckets       rlmiddleware.BucketStore
	memoryBuckets *bucket.InMemoryBucketStore
}

// newStores uses Postgres when pool is set and Redis for sessions and rate limits when rc is
// set. Anything unconfigured falls back to process memory.
func newStores(pool *database.Pool, rc *redis.Client) *stores {
	s := &stores{}
	if pool != nil {
		db := pool.DB()
		s.users = userStore.NewPostgres(db)
		s.sessions = sessionStore.NewPostgres(db)
		s.invitations = invitationStore.NewPostgres(db)
		s.schools = schoolStore.NewPostgres(db)
		s.classes = classroomStore.NewPostgres(db)
		s.assignments = assignmentStore.NewPostgres(db)
		s.classTx = database.NewTxRunner(db)
	} else {
		s.users = userStore.New()
		s.sessions = sessionStore.New()
		s.invitations = invitationStore.NewInMemory()
		s.schools = schoolStore.NewInMemory()
		s.classes = classroomStore.NewInMemory()
		s.assignments = assignmentStore.NewInMemory()
	}

	if rc != nil {
		s.sessions = sessionStore.NewRedis(rc.Client)
		s.buckets = bucket.NewRedis(rc.Client)
	} else {
		s.memoryBuckets = bucket.NewInMemoryBucketStore()
		s.buckets = s.memoryBuckets
	}
	return s
}
