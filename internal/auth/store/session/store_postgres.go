package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schoolbridge/internal/auth/models"
	"schoolbridge/internal/platform/database"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

const sessionColumns = `id, user_id, token_hash, device_name, created_at, last_used_at, expires_at`

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	_, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(session.ID), uuid.UUID(session.UserID), session.TokenHash, session.DeviceName,
		session.CreatedAt, session.LastUsedAt, session.ExpiresAt,
	)
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return fmt.Errorf("create session: %w", &sentinel.ConflictError{Field: "token"})
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, uuid.UUID(sessionID))
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

// Rotate swaps the token hash only if the stored hash still equals oldHash.
func (s *PostgresStore) Rotate(ctx context.Context, sessionID id.SessionID, oldHash, newHash string, usedAt, expiresAt time.Time) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE sessions SET token_hash = $3, last_used_at = $4, expires_at = $5
		WHERE id = $1 AND token_hash = $2`,
		uuid.UUID(sessionID), oldHash, newHash, usedAt, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate session rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("rotate session: %w", sentinel.ErrStale)
	}
	return nil
}

func (s *PostgresStore) DeleteByTokenHash(ctx context.Context, hash string) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID id.UserID) (int, error) {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete user sessions rows: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	rows, err := database.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY last_used_at DESC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows: %w", err)
	}
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session   models.Session
		sessionID uuid.UUID
		userID    uuid.UUID
	)
	if err := row.Scan(&sessionID, &userID, &session.TokenHash, &session.DeviceName,
		&session.CreatedAt, &session.LastUsedAt, &session.ExpiresAt); err != nil {
		return nil, err
	}
	session.ID = id.SessionID(sessionID)
	session.UserID = id.UserID(userID)
	return &session, nil
}
