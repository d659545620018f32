package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolbridge/internal/auth/models"
	"schoolbridge/internal/platform/database"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

const userColumns = `id, email, password_hash, full_name, first_name, last_name, phone, role, provider,
	google_id, profile_picture, is_verified, is_active, last_login, token_version, school_id,
	role_profile, created_at, updated_at`

var constraintFields = map[string]string{
	"users_email_key":     "email",
	"users_google_id_key": "googleId",
}

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	profile, err := json.Marshal(user.RoleProfile)
	if err != nil {
		return fmt.Errorf("encode role profile: %w", err)
	}
	_, err = database.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17::jsonb, $18, $19)`,
		uuid.UUID(user.ID), user.Email, user.PasswordHash, user.FullName, user.FirstName, user.LastName,
		user.Phone, string(user.Role), string(user.Provider), nullString(user.GoogleID), user.ProfilePicture,
		user.IsVerified, user.IsActive, user.LastLogin, user.TokenVersion, nullSchool(user.SchoolID),
		string(profile), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("create user", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	profile, err := json.Marshal(user.RoleProfile)
	if err != nil {
		return fmt.Errorf("encode role profile: %w", err)
	}
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE users SET email = $2, password_hash = $3, full_name = $4, first_name = $5, last_name = $6,
			phone = $7, role = $8, provider = $9, google_id = $10, profile_picture = $11, is_verified = $12,
			school_id = $13, role_profile = $14::jsonb, updated_at = $15
		WHERE id = $1`,
		uuid.UUID(user.ID), user.Email, user.PasswordHash, user.FullName, user.FirstName, user.LastName,
		user.Phone, string(user.Role), string(user.Provider), nullString(user.GoogleID), user.ProfilePicture,
		user.IsVerified, nullSchool(user.SchoolID), string(profile), user.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("update user", err)
	}
	return s.requireRow(ctx, res, user.ID, "update user")
}

// RecordLogin stamps last_login only while the account is active.
func (s *PostgresStore) RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1 AND is_active`,
		uuid.UUID(userID), at)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return s.requireRow(ctx, res, userID, "record login")
}

func (s *PostgresStore) SetActive(ctx context.Context, userID id.UserID, active bool, at time.Time) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(userID), active, at)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return s.requireRow(ctx, res, userID, "set user active")
}

// requireRow maps a write that matched nothing to ErrNotFound for a missing user and to
// ErrStale for a user whose state the condition rejected.
func (s *PostgresStore) requireRow(ctx context.Context, res sql.Result, userID id.UserID, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, uuid.UUID(userID)).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, sentinel.ErrStale)
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	return scanOne(row, "find user by id")
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanOne(row, "find user by email")
}

func (s *PostgresStore) FindByEmailOrGoogleID(ctx context.Context, email, googleID string) (*models.User, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1 OR ($2 <> '' AND google_id = $2)
		ORDER BY (email = $1) DESC
		LIMIT 1`, email, googleID)
	return scanOne(row, "find user by email or google id")
}

func (s *PostgresStore) BumpTokenVersion(ctx context.Context, userID id.UserID) (int, error) {
	var version int
	err := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`UPDATE users SET token_version = token_version + 1 WHERE id = $1 RETURNING token_version`,
		uuid.UUID(userID)).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return 0, fmt.Errorf("bump token version: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.User, error) {
	var (
		where []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.SchoolID != nil {
		args = append(args, uuid.UUID(*filter.SchoolID))
		where = append(where, fmt.Sprintf("school_id = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		ids := make([]string, len(filter.IDs))
		for i, u := range filter.IDs {
			ids[i] = u.String()
		}
		args = append(args, ids)
		where = append(where, fmt.Sprintf("id = ANY($%d::uuid[])", len(args)))
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY full_name, email`

	rows, err := database.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner, op string) (*models.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u        models.User
		userID   uuid.UUID
		role     string
		provider string
		googleID sql.NullString
		lastSeen sql.NullTime
		school   uuid.NullUUID
		profile  []byte
	)
	if err := row.Scan(&userID, &u.Email, &u.PasswordHash, &u.FullName, &u.FirstName, &u.LastName, &u.Phone,
		&role, &provider, &googleID, &u.ProfilePicture, &u.IsVerified, &u.IsActive, &lastSeen,
		&u.TokenVersion, &school, &profile, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	u.Role = id.Role(role)
	u.Provider = models.Provider(provider)
	u.GoogleID = googleID.String
	if lastSeen.Valid {
		t := lastSeen.Time
		u.LastLogin = &t
	}
	if school.Valid {
		sid := id.SchoolID(school.UUID)
		u.SchoolID = &sid
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &u.RoleProfile); err != nil {
			return nil, fmt.Errorf("decode role profile: %w", err)
		}
	}
	return &u, nil
}

func translateWriteError(op string, err error) error {
	if constraint, ok := database.IsUniqueViolation(err); ok {
		field, known := constraintFields[constraint]
		if !known {
			field = "user"
		}
		return fmt.Errorf("%s: %w", op, &sentinel.ConflictError{Field: field})
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullSchool(school *id.SchoolID) uuid.NullUUID {
	if school == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*school), Valid: true}
}
