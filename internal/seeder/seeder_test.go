package seeder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assignmentStore "schoolbridge/internal/assignment/store"
	userStore "schoolbridge/internal/auth/store/user"
	classmodels "schoolbridge/internal/classroom/models"
	classroomStore "schoolbridge/internal/classroom/store"
	schoolStore "schoolbridge/internal/school/store"
	id "schoolbridge/pkg/domain"
)

func TestSeedAll(t *testing.T) {
	ctx := context.Background()
	users := userStore.New()
	schools := schoolStore.NewInMemory()
	classes := classroomStore.NewInMemory()
	assignments := assignmentStore.NewInMemory()
	hash := func(p string) (string, error) { return "hashed:" + p, nil }

	s := New(users, schools, classes, assignments, hash, slog.New(slog.NewTextHandler(io.Discard, nil)))
	summary, err := s.SeedAll(ctx)
	require.NoError(t, err)

	school, err := schools.FindByID(ctx, summary.SchoolID)
	require.NoError(t, err)
	assert.Equal(t, "Riverside Academy", school.Name)

	teacher, err := users.FindByID(ctx, summary.TeacherID)
	require.NoError(t, err)
	assert.Equal(t, id.RoleTeacher, teacher.Role)
	assert.Equal(t, "hashed:"+DemoPassword, teacher.PasswordHash)

	parent, err := users.FindByEmail(ctx, "parent@riverside.example")
	require.NoError(t, err)
	assert.Equal(t, []id.UserID{summary.StudentIDs[0]}, parent.RoleProfile.Children)

	class, err := classes.FindByID(ctx, summary.ClassID)
	require.NoError(t, err)
	assert.ElementsMatch(t, summary.StudentIDs, class.StudentIDs)

	listed, err := classes.List(ctx, classmodels.Filter{TeacherID: &summary.TeacherID})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	assignment, err := assignments.FindByID(ctx, summary.AssignmentID)
	require.NoError(t, err)
	assert.True(t, assignment.IsPublished)
	assert.Equal(t, summary.ClassID, assignment.ClassID)
}

func TestSeedAllRejectsASecondRun(t *testing.T) {
	ctx := context.Background()
	users := userStore.New()
	hash := func(p string) (string, error) { return p, nil }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(users, schoolStore.NewInMemory(), classroomStore.NewInMemory(), assignmentStore.NewInMemory(), hash, logger).SeedAll(ctx)
	require.NoError(t, err)

	_, err = New(users, schoolStore.NewInMemory(), classroomStore.NewInMemory(), assignmentStore.NewInMemory(), hash, logger).SeedAll(ctx)
	assert.Error(t, err, "seeded emails already exist")
}
