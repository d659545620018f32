//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"schoolbridge/internal/platform/database"
	id "schoolbridge/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with the goose migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("schoolbridge_test"),
		postgres.WithUsername("schoolbridge"),
		postgres.WithPassword("schoolbridge_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := database.FromDB(db).Migrate(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// The container is shared through Manager; Ryuk removes it when the test process exits.
	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables clears all data from the specified tables.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		if err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateAll truncates every application table.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"submissions", "assignments", "class_students", "classes",
		"invitations", "sessions", "users", "schools",
	)
}

// Exec runs a SQL statement and returns the result.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// CreateTestSchool inserts a school and returns its ID.
func (p *PostgresContainer) CreateTestSchool(ctx context.Context, t testing.TB) id.SchoolID {
	t.Helper()
	schoolID := id.SchoolID(uuid.New())
	_, err := p.Exec(ctx, `
		INSERT INTO schools (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
	`, uuid.UUID(schoolID), "Test School "+uuid.NewString())
	if err != nil {
		t.Fatalf("CreateTestSchool: %v", err)
	}
	return schoolID
}

// CreateTestUser inserts an active email user with the given role and returns its ID.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, role id.Role, school *id.SchoolID) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	var schoolID uuid.NullUUID
	if school != nil {
		schoolID = uuid.NullUUID{UUID: uuid.UUID(*school), Valid: true}
	}
	_, err := p.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, provider, school_id, created_at, updated_at)
		VALUES ($1, $2, 'hash', 'Test User', $3, 'email', $4, NOW(), NOW())
	`, uuid.UUID(userID), "user-"+uuid.NewString()+"@example.com", string(role), schoolID)
	if err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	return userID
}
