// Package seeder populates empty stores with a demo school for local development.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	assignmentmodels "schoolbridge/internal/assignment/models"
	"schoolbridge/internal/auth/models"
	classmodels "schoolbridge/internal/classroom/models"
	schoolmodels "schoolbridge/internal/school/models"
	id "schoolbridge/pkg/domain"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "schoolbridge-demo"

// UserStore defines methods for seeding users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
}

type SchoolStore interface {
	Create(ctx context.Context, school *schoolmodels.School) error
}

type ClassStore interface {
	Create(ctx context.Context, class *classmodels.Class) error
	AddStudents(ctx context.Context, classID id.ClassID, studentIDs []id.UserID, now time.Time) (int, error)
}

type AssignmentStore interface {
	Create(ctx context.Context, a *assignmentmodels.Assignment) error
}

// Seeder creates one school with an admin, a teacher, students, a parent, a class and
// a published assignment.
type Seeder struct {
	users       UserStore
	schools     SchoolStore
	classes     ClassStore
	assignments AssignmentStore
	hash        func(string) (string, error)
	logger      *slog.Logger
	now         func() time.Time
}

func New(users UserStore, schools SchoolStore, classes ClassStore, assignments AssignmentStore,
	hash func(string) (string, error), logger *slog.Logger) *Seeder {
	return &Seeder{
		users:       users,
		schools:     schools,
		classes:     classes,
		assignments: assignments,
		hash:        hash,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Summary lists what SeedAll created.
type Summary struct {
	SchoolID     id.SchoolID
	TeacherID    id.UserID
	StudentIDs   []id.UserID
	ClassID      id.ClassID
	AssignmentID id.AssignmentID
}

// SeedAll populates all stores with demo data
func (s *Seeder) SeedAll(ctx context.Context) (*Summary, error) {
	s.logger.InfoContext(ctx, "seeding demo data")
	now := s.now()

	school, err := schoolmodels.NewSchool("Riverside Academy", schoolmodels.Settings{}, now)
	if err != nil {
		return nil, err
	}
	if err := s.schools.Create(ctx, school); err != nil {
		return nil, fmt.Errorf("failed to seed school: %w", err)
	}

	passwordHash, err := s.hash(DemoPassword)
	if err != nil {
		return nil, err
	}

	demoUsers := []struct {
		email    string
		fullName string
		role     id.Role
	}{
		{"admin@riverside.example", "Rita Principal", id.RoleAdmin},
		{"teacher@riverside.example", "Tom Teacher", id.RoleTeacher},
		{"alice@riverside.example", "Alice Anderson", id.RoleStudent},
		{"bob@riverside.example", "Bob Brown", id.RoleStudent},
		{"parent@riverside.example", "Pat Anderson", id.RoleParent},
	}

	byRole := make(map[id.Role][]*models.User)
	for _, u := range demoUsers {
		user, err := models.NewUser(models.NewUserParams{
			Email:        u.email,
			PasswordHash: passwordHash,
			FullName:     u.fullName,
			Role:         u.role,
			Provider:     models.ProviderEmail,
			IsVerified:   true,
			SchoolID:     &school.ID,
		}, now)
		if err != nil {
			return nil, err
		}
		if u.role == id.RoleParent {
			user.RoleProfile.Children = []id.UserID{byRole[id.RoleStudent][0].ID}
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", u.email, err)
		}
		byRole[u.role] = append(byRole[u.role], user)
	}

	teacher := byRole[id.RoleTeacher][0]
	studentIDs := make([]id.UserID, 0, len(byRole[id.RoleStudent]))
	for _, st := range byRole[id.RoleStudent] {
		studentIDs = append(studentIDs, st.ID)
	}

	class := &classmodels.Class{
		ID:         id.NewClassID(),
		Name:       "Biology 10B",
		Subject:    "Biology",
		TeacherID:  teacher.ID,
		SchoolID:   &school.ID,
		StudentIDs: []id.UserID{},
		Room:       "Lab 2",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, fmt.Errorf("failed to seed class: %w", err)
	}
	if _, err := s.classes.AddStudents(ctx, class.ID, studentIDs, now); err != nil {
		return nil, fmt.Errorf("failed to enrol students: %w", err)
	}

	assignment := &assignmentmodels.Assignment{
		ID:          id.NewAssignmentID(),
		Title:       "Cell structure worksheet",
		Description: "Label the organelles and describe their function.",
		DueDate:     now.Add(7 * 24 * time.Hour).Truncate(time.Hour),
		ClassID:     class.ID,
		TeacherID:   teacher.ID,
		MaxPoints:   assignmentmodels.DefaultMaxPoints,
		Attachments: []string{},
		IsPublished: true,
		Submissions: []assignmentmodels.Submission{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to seed assignment: %w", err)
	}

	s.logger.InfoContext(ctx, "demo data seeded successfully",
		"school_id", school.ID.String(),
		"users", len(demoUsers),
	)
	return &Summary{
		SchoolID:     school.ID,
		TeacherID:    teacher.ID,
		StudentIDs:   studentIDs,
		ClassID:      class.ID,
		AssignmentID: assignment.ID,
	}, nil
}
