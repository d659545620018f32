package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolbridge/internal/classroom/models"
	"schoolbridge/internal/platform/database"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

const classColumns = `c.id, c.name, c.subject, c.teacher_id, c.school_id, c.schedule, c.room, c.created_at, c.updated_at`

// PostgresStore persists classes in PostgreSQL. Enrolments live in class_students.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, class *models.Class) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context) error {
		_, err := database.Conn(ctx, s.db).ExecContext(ctx, `
			INSERT INTO classes (id, name, subject, teacher_id, school_id, schedule, room, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.UUID(class.ID), class.Name, class.Subject, uuid.UUID(class.TeacherID), nullSchool(class.SchoolID),
			class.Schedule, class.Room, class.CreatedAt, class.UpdatedAt,
		)
		if err != nil {
			if _, ok := database.IsUniqueViolation(err); ok {
				return fmt.Errorf("create class: %w", &sentinel.ConflictError{Field: "id"})
			}
			return fmt.Errorf("create class: %w", err)
		}
		if len(class.StudentIDs) == 0 {
			return nil
		}
		_, err = s.AddStudents(ctx, class.ID, class.StudentIDs, class.CreatedAt)
		return err
	})
}

func (s *PostgresStore) Update(ctx context.Context, class *models.Class) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE classes SET name = $2, subject = $3, schedule = $4, room = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(class.ID), class.Name, class.Subject, class.Schedule, class.Room, class.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return requireRow(res, "update class", "class not found")
}

func (s *PostgresStore) FindByID(ctx context.Context, classID id.ClassID) (*models.Class, error) {
	classes, err := s.query(ctx, `SELECT `+classColumns+` FROM classes c WHERE c.id = $1`, uuid.UUID(classID))
	if err != nil {
		return nil, fmt.Errorf("find class: %w", err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("class not found: %w", sentinel.ErrNotFound)
	}
	return classes[0], nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Class, error) {
	var (
		where []string
		args  []any
	)
	if filter.TeacherID != nil {
		args = append(args, uuid.UUID(*filter.TeacherID))
		where = append(where, fmt.Sprintf("c.teacher_id = $%d", len(args)))
	}
	if filter.SchoolID != nil {
		args = append(args, uuid.UUID(*filter.SchoolID))
		where = append(where, fmt.Sprintf("c.school_id = $%d", len(args)))
	}
	if len(filter.StudentIDs) > 0 {
		args = append(args, uuidStrings(filter.StudentIDs))
		where = append(where, fmt.Sprintf(`EXISTS (SELECT 1 FROM class_students cs
			WHERE cs.class_id = c.id AND cs.student_id = ANY($%d::uuid[]))`, len(args)))
	}

	query := `SELECT ` + classColumns + ` FROM classes c`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY c.name, c.created_at`

	classes, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

func (s *PostgresStore) AddStudents(ctx context.Context, classID id.ClassID, studentIDs []id.UserID, now time.Time) (int, error) {
	conn := database.Conn(ctx, s.db)
	res, err := conn.ExecContext(ctx, `
		INSERT INTO class_students (class_id, student_id, added_at)
		SELECT $1::uuid, unnest($2::uuid[]), $3::timestamptz
		ON CONFLICT (class_id, student_id) DO NOTHING`,
		uuid.UUID(classID), uuidStrings(studentIDs), now,
	)
	if err != nil {
		return 0, fmt.Errorf("add students: %w", err)
	}
	added, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("add students rows: %w", err)
	}
	if added > 0 {
		if _, err := conn.ExecContext(ctx, `UPDATE classes SET updated_at = $2 WHERE id = $1`, uuid.UUID(classID), now); err != nil {
			return 0, fmt.Errorf("touch class: %w", err)
		}
	}
	return int(added), nil
}

func (s *PostgresStore) RemoveStudent(ctx context.Context, classID id.ClassID, studentID id.UserID) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`,
		uuid.UUID(classID), uuid.UUID(studentID))
	if err != nil {
		return fmt.Errorf("remove student: %w", err)
	}
	return requireRow(res, "remove student", "enrolment not found")
}

// Delete removes the class and its enrolments. Assignments must be removed first.
func (s *PostgresStore) Delete(ctx context.Context, classID id.ClassID) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, uuid.UUID(classID))
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return requireRow(res, "delete class", "class not found")
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Class, error) {
	conn := database.Conn(ctx, s.db)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := make([]*models.Class, 0)
	byID := make(map[id.ClassID]*models.Class)
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, class)
		byID[class.ID] = class
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	if len(classes) == 0 {
		return classes, nil
	}

	ids := make([]string, len(classes))
	for i, c := range classes {
		ids[i] = c.ID.String()
	}
	enrolments, err := conn.QueryContext(ctx, `
		SELECT class_id, student_id FROM class_students
		WHERE class_id = ANY($1::uuid[])
		ORDER BY added_at, student_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("load enrolments: %w", err)
	}
	defer enrolments.Close()
	for enrolments.Next() {
		var classID, studentID uuid.UUID
		if err := enrolments.Scan(&classID, &studentID); err != nil {
			return nil, fmt.Errorf("scan enrolment: %w", err)
		}
		if class, ok := byID[id.ClassID(classID)]; ok {
			class.StudentIDs = append(class.StudentIDs, id.UserID(studentID))
		}
	}
	if err := enrolments.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolments: %w", err)
	}
	return classes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClass(row rowScanner) (*models.Class, error) {
	var (
		class     models.Class
		classID   uuid.UUID
		teacherID uuid.UUID
		school    uuid.NullUUID
	)
	if err := row.Scan(&classID, &class.Name, &class.Subject, &teacherID, &school,
		&class.Schedule, &class.Room, &class.CreatedAt, &class.UpdatedAt); err != nil {
		return nil, err
	}
	class.ID = id.ClassID(classID)
	class.TeacherID = id.UserID(teacherID)
	class.StudentIDs = []id.UserID{}
	if school.Valid {
		sid := id.SchoolID(school.UUID)
		class.SchoolID = &sid
	}
	return &class, nil
}

func requireRow(res sql.Result, op, missing string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", missing, sentinel.ErrNotFound)
	}
	return nil
}

func uuidStrings(ids []id.UserID) []string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = v.String()
	}
	return out
}

func nullSchool(school *id.SchoolID) uuid.NullUUID {
	if school == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*school), Valid: true}
}

