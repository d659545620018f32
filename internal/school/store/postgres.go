package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"schoolbridge/internal/platform/database"
	"schoolbridge/internal/school/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

const schoolColumns = `id, name, address, contact_email, contact_phone, grading_scheme, timezone,
	is_active, created_at, updated_at`

// PostgresStore persists schools in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, school *models.School) error {
	_, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO schools (`+schoolColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(school.ID), school.Name, school.Address, school.ContactEmail, school.ContactPhone,
		string(school.GradingScheme), school.Timezone, school.IsActive, school.CreatedAt, school.UpdatedAt,
	)
	return translateWriteError("create school", err)
}

func (s *PostgresStore) Update(ctx context.Context, school *models.School) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE schools SET name = $2, address = $3, contact_email = $4, contact_phone = $5,
			grading_scheme = $6, timezone = $7, is_active = $8, updated_at = $9
		WHERE id = $1`,
		uuid.UUID(school.ID), school.Name, school.Address, school.ContactEmail, school.ContactPhone,
		string(school.GradingScheme), school.Timezone, school.IsActive, school.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("update school", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update school rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("school not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, schoolID id.SchoolID) (*models.School, error) {
	school, err := scanSchool(database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE id = $1`, uuid.UUID(schoolID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("school not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find school: %w", err)
	}
	return school, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.School, error) {
	rows, err := database.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+schoolColumns+` FROM schools ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer rows.Close()

	out := make([]*models.School, 0)
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan school: %w", err)
		}
		out = append(out, school)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schools: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchool(row rowScanner) (*models.School, error) {
	var (
		school   models.School
		schoolID uuid.UUID
		scheme   string
	)
	if err := row.Scan(&schoolID, &school.Name, &school.Address, &school.ContactEmail, &school.ContactPhone,
		&scheme, &school.Timezone, &school.IsActive, &school.CreatedAt, &school.UpdatedAt); err != nil {
		return nil, err
	}
	school.ID = id.SchoolID(schoolID)
	school.GradingScheme = models.GradingScheme(scheme)
	return &school, nil
}

func translateWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := database.IsUniqueViolation(err); ok {
		return fmt.Errorf("%s: %w", op, &sentinel.ConflictError{Field: "name"})
	}
	return fmt.Errorf("%s: %w", op, err)
}
