package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolbridge/internal/invitation/models"
	"schoolbridge/internal/platform/database"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

const invitationColumns = `id, email, role, school_id, token, status, expires_at, created_by,
	error_detail, accepted_at, last_sent_at, send_count, created_at`

// PostgresStore persists invitations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, inv *models.Invitation) error {
	_, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO invitations (`+invitationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.UUID(inv.ID), inv.Email, string(inv.Role), nullSchool(inv.SchoolID), inv.Token, string(inv.Status),
		inv.ExpiresAt, uuid.UUID(inv.CreatedBy), inv.ErrorDetail, inv.AcceptedAt, inv.LastSentAt, inv.SendCount,
		inv.CreatedAt,
	)
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return fmt.Errorf("create invitation: %w", &sentinel.ConflictError{Field: "token"})
		}
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

// Reissue swaps in a fresh token and expiry, but only while the row still holds previousToken
// and is pending or failed.
func (s *PostgresStore) Reissue(ctx context.Context, inv *models.Invitation, previousToken string) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE invitations SET token = $3, status = 'pending', expires_at = $4, error_detail = ''
		WHERE id = $1 AND token = $2 AND status IN ('pending', 'failed')`,
		uuid.UUID(inv.ID), previousToken, inv.Token, inv.ExpiresAt,
	)
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return fmt.Errorf("reissue invitation: %w", &sentinel.ConflictError{Field: "token"})
		}
		return fmt.Errorf("reissue invitation: %w", err)
	}
	return s.requireRow(ctx, res, inv.ID, "reissue invitation")
}

func (s *PostgresStore) RecordDelivery(ctx context.Context, inv *models.Invitation) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE invitations SET status = $3, error_detail = $4, last_sent_at = $5, send_count = send_count + 1
		WHERE id = $1 AND token = $2 AND status IN ('pending', 'failed')`,
		uuid.UUID(inv.ID), inv.Token, string(inv.Status), inv.ErrorDetail, inv.LastSentAt,
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return s.requireRow(ctx, res, inv.ID, "record delivery")
}

func (s *PostgresStore) Revoke(ctx context.Context, invitationID id.InvitationID) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE invitations SET status = 'revoked'
		WHERE id = $1 AND status IN ('pending', 'failed')`, uuid.UUID(invitationID))
	if err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}
	return s.requireRow(ctx, res, invitationID, "revoke invitation")
}

// requireRow turns a conditional update that matched nothing into ErrNotFound when the row
// is gone, or ErrStale when it exists in a state the update did not accept.
func (s *PostgresStore) requireRow(ctx context.Context, res sql.Result, invitationID id.InvitationID, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM invitations WHERE id = $1)`, uuid.UUID(invitationID)).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, sentinel.ErrStale)
}

func (s *PostgresStore) FindByID(ctx context.Context, invitationID id.InvitationID) (*models.Invitation, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, uuid.UUID(invitationID))
	return scanOne(row, "find invitation")
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = $1`, token)
	return scanOne(row, "find invitation by token")
}

func (s *PostgresStore) FindActionableByEmail(ctx context.Context, email string, now time.Time) (*models.Invitation, error) {
	row := database.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE email = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY created_at DESC LIMIT 1`, email, now)
	return scanOne(row, "find actionable invitation")
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, now time.Time) ([]*models.Invitation, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, r := range filter.Roles {
			roles[i] = string(r)
		}
		args = append(args, roles)
		where = append(where, fmt.Sprintf("role = ANY($%d::text[])", len(args)))
	}
	if filter.SchoolID != nil {
		args = append(args, uuid.UUID(*filter.SchoolID))
		where = append(where, fmt.Sprintf("school_id = $%d", len(args)))
	}
	switch filter.Status {
	case "":
	case models.StatusExpired:
		args = append(args, now)
		where = append(where, fmt.Sprintf("(status = 'expired' OR (status = 'pending' AND expires_at <= $%d))", len(args)))
	case models.StatusPending:
		args = append(args, now)
		where = append(where, fmt.Sprintf("status = 'pending' AND expires_at > $%d", len(args)))
	default:
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + invitationColumns + ` FROM invitations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := database.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return out, nil
}

// Consume is a conditional single-row update; a miss is classified with a follow-up read.
func (s *PostgresStore) Consume(ctx context.Context, token string, now time.Time) (*models.Invitation, error) {
	conn := database.Conn(ctx, s.db)
	row := conn.QueryRowContext(ctx, `
		UPDATE invitations SET status = 'accepted', accepted_at = $2
		WHERE token = $1 AND status = 'pending' AND expires_at > $2
		RETURNING `+invitationColumns, token, now)
	inv, err := scanInvitation(row)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume invitation: %w", err)
	}

	current, err := s.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := consumable(current, now); err != nil {
		return nil, err
	}
	// The row became consumable between the update and the read; treat it as raced.
	return nil, fmt.Errorf("consume invitation: %w", sentinel.ErrAlreadyUsed)
}

func (s *PostgresStore) Restore(ctx context.Context, invitationID id.InvitationID) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE invitations SET status = 'pending', accepted_at = NULL
		WHERE id = $1 AND status = 'accepted'`, uuid.UUID(invitationID))
	if err != nil {
		return fmt.Errorf("restore invitation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("restore invitation rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("restore invitation: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM invitations WHERE expires_at < $1 AND status <> 'accepted'`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired invitations: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired invitations rows: %w", err)
	}
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner, op string) (*models.Invitation, error) {
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invitation not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var (
		inv        models.Invitation
		invID      uuid.UUID
		role       string
		school     uuid.NullUUID
		status     string
		createdBy  uuid.UUID
		acceptedAt sql.NullTime
		lastSentAt sql.NullTime
	)
	if err := row.Scan(&invID, &inv.Email, &role, &school, &inv.Token, &status, &inv.ExpiresAt, &createdBy,
		&inv.ErrorDetail, &acceptedAt, &lastSentAt, &inv.SendCount, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.ID = id.InvitationID(invID)
	inv.Role = id.Role(role)
	inv.Status = models.Status(status)
	inv.CreatedBy = id.UserID(createdBy)
	if school.Valid {
		sid := id.SchoolID(school.UUID)
		inv.SchoolID = &sid
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	if lastSentAt.Valid {
		t := lastSentAt.Time
		inv.LastSentAt = &t
	}
	return &inv, nil
}

func nullSchool(school *id.SchoolID) uuid.NullUUID {
	if school == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*school), Valid: true}
}
