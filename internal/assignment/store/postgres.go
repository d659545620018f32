package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolbridge/internal/assignment/models"
	"schoolbridge/internal/platform/database"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

const assignmentColumns = `a.id, a.title, a.description, a.due_date, a.class_id, a.teacher_id, a.max_points,
	a.attachments, a.is_published, a.created_at, a.updated_at`

// PostgresStore persists assignments in PostgreSQL. Submissions live in their own table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Assignment) error {
	attachments, err := json.Marshal(nonNil(a.Attachments))
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	_, err = database.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO assignments (id, title, description, due_date, class_id, teacher_id, max_points,
			attachments, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(a.ID), a.Title, a.Description, a.DueDate, uuid.UUID(a.ClassID), uuid.UUID(a.TeacherID),
		a.MaxPoints, attachments, a.IsPublished, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return fmt.Errorf("create assignment: %w", &sentinel.ConflictError{Field: "id"})
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Assignment) error {
	attachments, err := json.Marshal(nonNil(a.Attachments))
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE assignments SET title = $2, description = $3, due_date = $4, max_points = $5,
			attachments = $6, is_published = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(a.ID), a.Title, a.Description, a.DueDate, a.MaxPoints, attachments, a.IsPublished, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return requireRow(res, "update assignment", "assignment not found")
}

func (s *PostgresStore) FindByID(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	out, err := s.query(ctx, `SELECT `+assignmentColumns+` FROM assignments a WHERE a.id = $1`, uuid.UUID(assignmentID))
	if err != nil {
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
	}
	return out[0], nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Assignment, error) {
	var (
		where []string
		args  []any
	)
	if filter.TeacherID != nil {
		args = append(args, uuid.UUID(*filter.TeacherID))
		where = append(where, fmt.Sprintf("a.teacher_id = $%d", len(args)))
	}
	if len(filter.ClassIDs) > 0 {
		ids := make([]string, len(filter.ClassIDs))
		for i, classID := range filter.ClassIDs {
			ids[i] = classID.String()
		}
		args = append(args, ids)
		where = append(where, fmt.Sprintf("a.class_id = ANY($%d::uuid[])", len(args)))
	}
	if filter.PublishedOnly {
		where = append(where, "a.is_published")
	}

	query := `SELECT ` + assignmentColumns + ` FROM assignments a`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.due_date, a.created_at"

	out, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, assignmentID id.AssignmentID) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, s.db)
		if _, err := conn.ExecContext(ctx, `DELETE FROM submissions WHERE assignment_id = $1`, uuid.UUID(assignmentID)); err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
		res, err := conn.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, uuid.UUID(assignmentID))
		if err != nil {
			return fmt.Errorf("delete assignment: %w", err)
		}
		return requireRow(res, "delete assignment", "assignment not found")
	})
}

func (s *PostgresStore) DeleteByClass(ctx context.Context, classID id.ClassID) (int, error) {
	var removed int64
	err := database.WithTx(ctx, s.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, s.db)
		_, err := conn.ExecContext(ctx, `
			DELETE FROM submissions
			WHERE assignment_id IN (SELECT id FROM assignments WHERE class_id = $1)`, uuid.UUID(classID))
		if err != nil {
			return fmt.Errorf("delete class submissions: %w", err)
		}
		res, err := conn.ExecContext(ctx, `DELETE FROM assignments WHERE class_id = $1`, uuid.UUID(classID))
		if err != nil {
			return fmt.Errorf("delete class assignments: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return int(removed), err
}

// UpsertSubmission inserts or replaces an ungraded submission. The conflict update is guarded
// by grade IS NULL, so zero affected rows means the submission was already graded.
func (s *PostgresStore) UpsertSubmission(ctx context.Context, assignmentID id.AssignmentID, sub models.Submission) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO submissions (assignment_id, student_id, submitted_at, content)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (assignment_id, student_id) DO UPDATE
			SET submitted_at = EXCLUDED.submitted_at, content = EXCLUDED.content
			WHERE submissions.grade IS NULL`,
		uuid.UUID(assignmentID), uuid.UUID(sub.StudentID), sub.SubmittedAt, sub.Content,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("assignment not found: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("upsert submission: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("submission already graded: %w", sentinel.ErrAlreadyUsed)
	}
	return nil
}

func (s *PostgresStore) Grade(ctx context.Context, assignmentID id.AssignmentID, studentID id.UserID, grade int, feedback string, at time.Time) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE submissions SET grade = $3, feedback = $4, graded_at = $5
		WHERE assignment_id = $1 AND student_id = $2`,
		uuid.UUID(assignmentID), uuid.UUID(studentID), grade, feedback, at,
	)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return requireRow(res, "grade submission", "submission not found")
}

// query loads assignments and attaches their submissions with a single follow-up query.
func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Assignment, error) {
	conn := database.Conn(ctx, s.db)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.Assignment, 0)
	byID := make(map[id.AssignmentID]*models.Assignment)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, a := range out {
		ids = append(ids, a.ID.String())
	}
	subRows, err := conn.QueryContext(ctx, `
		SELECT assignment_id, student_id, submitted_at, content, grade, feedback, graded_at
		FROM submissions WHERE assignment_id = ANY($1::uuid[])
		ORDER BY submitted_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	defer subRows.Close()
	for subRows.Next() {
		var (
			assignmentID, studentID uuid.UUID
			sub                     models.Submission
			grade                   sql.NullInt32
			gradedAt                sql.NullTime
		)
		if err := subRows.Scan(&assignmentID, &studentID, &sub.SubmittedAt, &sub.Content, &grade, &sub.Feedback, &gradedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.StudentID = id.UserID(studentID)
		if grade.Valid {
			g := int(grade.Int32)
			sub.Grade = &g
		}
		if gradedAt.Valid {
			t := gradedAt.Time
			sub.GradedAt = &t
		}
		if a, ok := byID[id.AssignmentID(assignmentID)]; ok {
			a.Submissions = append(a.Submissions, sub)
		}
	}
	return out, subRows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var (
		a                                models.Assignment
		assignmentID, classID, teacherID uuid.UUID
		attachments                      []byte
	)
	err := row.Scan(&assignmentID, &a.Title, &a.Description, &a.DueDate, &classID, &teacherID, &a.MaxPoints,
		&attachments, &a.IsPublished, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	a.ID = id.AssignmentID(assignmentID)
	a.ClassID = id.ClassID(classID)
	a.TeacherID = id.UserID(teacherID)
	if err := json.Unmarshal(attachments, &a.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	a.Submissions = []models.Submission{}
	return &a, nil
}

func requireRow(res sql.Result, op, missing string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", missing, sentinel.ErrNotFound)
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
