package models

import (
	"slices"
	"time"

	id "schoolbridge/pkg/domain"
)

// Class is a teacher-owned group of students. SchoolID is copied from the teacher at creation.
type Class struct {
	ID         id.ClassID   `json:"id"`
	Name       string       `json:"name"`
	Subject    string       `json:"subject"`
	TeacherID  id.UserID    `json:"teacherId"`
	SchoolID   *id.SchoolID `json:"schoolId,omitempty"`
	StudentIDs []id.UserID  `json:"studentIds"`
	Schedule   string       `json:"schedule,omitempty"`
	Room       string       `json:"room,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func (c *Class) IsOwnedBy(userID id.UserID) bool {
	return c.TeacherID == userID
}

func (c *Class) HasStudent(studentID id.UserID) bool {
	return slices.Contains(c.StudentIDs, studentID)
}

// HasAnyStudent reports whether any of studentIDs is enrolled.
func (c *Class) HasAnyStudent(studentIDs []id.UserID) bool {
	return slices.ContainsFunc(studentIDs, c.HasStudent)
}

// Clone returns a deep copy.
func (c *Class) Clone() *Class {
	out := *c
	out.StudentIDs = slices.Clone(c.StudentIDs)
	if c.SchoolID != nil {
		school := *c.SchoolID
		out.SchoolID = &school
	}
	return &out
}

// Filter narrows class listings. Set fields are combined with AND; StudentIDs matches a class
// enrolling any of them.
type Filter struct {
	TeacherID  *id.UserID
	SchoolID   *id.SchoolID
	StudentIDs []id.UserID
}

func (f Filter) Matches(c *Class) bool {
	if f.TeacherID != nil && c.TeacherID != *f.TeacherID {
		return false
	}
	if f.SchoolID != nil && (c.SchoolID == nil || *c.SchoolID != *f.SchoolID) {
		return false
	}
	if len(f.StudentIDs) > 0 && !c.HasAnyStudent(f.StudentIDs) {
		return false
	}
	return true
}
