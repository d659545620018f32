package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
)

func TestFilterMatches(t *testing.T) {
	teacher, student := id.NewUserID(), id.NewUserID()
	school := id.NewSchoolID()
	class := &Class{TeacherID: teacher, SchoolID: &school, StudentIDs: []id.UserID{student}}

	other := id.NewUserID()
	otherSchool := id.NewSchoolID()

	assert.True(t, Filter{}.Matches(class))
	assert.True(t, Filter{TeacherID: &teacher, SchoolID: &school}.Matches(class))
	assert.True(t, Filter{StudentIDs: []id.UserID{other, student}}.Matches(class))
	assert.False(t, Filter{TeacherID: &other}.Matches(class))
	assert.False(t, Filter{SchoolID: &otherSchool}.Matches(class))
	assert.False(t, Filter{StudentIDs: []id.UserID{other}}.Matches(class))
	assert.False(t, Filter{SchoolID: &school}.Matches(&Class{TeacherID: teacher}))
}

func TestCloneIsDeep(t *testing.T) {
	school := id.NewSchoolID()
	class := &Class{SchoolID: &school, StudentIDs: []id.UserID{id.NewUserID()}}
	c := class.Clone()
	c.StudentIDs[0] = id.NewUserID()
	*c.SchoolID = id.NewSchoolID()

	assert.NotEqual(t, c.StudentIDs[0], class.StudentIDs[0])
	assert.Equal(t, school, *class.SchoolID)
}

func TestAddStudentsRequest(t *testing.T) {
	a := id.NewUserID()

	t.Run("dedupes and parses", func(t *testing.T) {
		req := &AddStudentsRequest{StudentIDs: []string{" " + a.String() + " ", a.String()}}
		req.Normalize()
		require.NoError(t, req.Validate())
		assert.Equal(t, []id.UserID{a}, req.IDs())
	})

	t.Run("rejects empty and malformed", func(t *testing.T) {
		assert.True(t, dErrors.HasCode((&AddStudentsRequest{}).Validate(), dErrors.CodeValidation))

		err := (&AddStudentsRequest{StudentIDs: []string{"nope"}}).Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
