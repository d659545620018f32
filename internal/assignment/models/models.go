package models

import (
	"slices"
	"time"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
)

// DefaultMaxPoints applies when an assignment is created without a maximum.
const DefaultMaxPoints = 100

// Assignment is a teacher-owned piece of work for one class.
type Assignment struct {
	ID          id.AssignmentID `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	DueDate     time.Time       `json:"dueDate"`
	ClassID     id.ClassID      `json:"classId"`
	TeacherID   id.UserID       `json:"teacherId"`
	MaxPoints   int             `json:"maxPoints"`
	Attachments []string        `json:"attachments"`
	IsPublished bool            `json:"isPublished"`
	Submissions []Submission    `json:"submissions"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Submission is one student's work. There is at most one per student and assignment.
type Submission struct {
	StudentID   id.UserID  `json:"studentId"`
	SubmittedAt time.Time  `json:"submittedAt"`
	Content     string     `json:"content"`
	Grade       *int       `json:"grade,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
	GradedAt    *time.Time `json:"gradedAt,omitempty"`
}

func (s Submission) IsGraded() bool {
	return s.Grade != nil
}

func (a *Assignment) IsOwnedBy(userID id.UserID) bool {
	return a.TeacherID == userID
}

// IsLate reports whether a submission made at t misses the due date.
func (a *Assignment) IsLate(t time.Time) bool {
	return t.After(a.DueDate)
}

// SubmissionOf returns studentID's submission, if any.
func (a *Assignment) SubmissionOf(studentID id.UserID) (Submission, bool) {
	idx := slices.IndexFunc(a.Submissions, func(s Submission) bool { return s.StudentID == studentID })
	if idx < 0 {
		return Submission{}, false
	}
	return a.Submissions[idx], true
}

// CheckGrade enforces 0 <= grade <= MaxPoints.
func (a *Assignment) CheckGrade(grade int) error {
	if grade < 0 || grade > a.MaxPoints {
		return dErrors.WithDetails(dErrors.CodeValidation, "grade is out of range",
			map[string]string{"grade": "grade must be between 0 and the assignment's max points"})
	}
	return nil
}

// ForStudent returns a copy that only carries studentID's own submission.
func (a *Assignment) ForStudent(studentID id.UserID) *Assignment {
	out := a.Clone()
	out.Submissions = []Submission{}
	if sub, ok := a.SubmissionOf(studentID); ok {
		out.Submissions = append(out.Submissions, sub)
	}
	return out
}

// Clone returns a deep copy.
func (a *Assignment) Clone() *Assignment {
	out := *a
	out.Attachments = slices.Clone(a.Attachments)
	out.Submissions = make([]Submission, len(a.Submissions))
	for i, sub := range a.Submissions {
		if sub.Grade != nil {
			g := *sub.Grade
			sub.Grade = &g
		}
		if sub.GradedAt != nil {
			t := *sub.GradedAt
			sub.GradedAt = &t
		}
		out.Submissions[i] = sub
	}
	return &out
}

// Filter narrows assignment listings.
type Filter struct {
	TeacherID     *id.UserID
	ClassIDs      []id.ClassID
	PublishedOnly bool
}

func (f Filter) Matches(a *Assignment) bool {
	if f.TeacherID != nil && a.TeacherID != *f.TeacherID {
		return false
	}
	if len(f.ClassIDs) > 0 && !slices.Contains(f.ClassIDs, a.ClassID) {
		return false
	}
	if f.PublishedOnly && !a.IsPublished {
		return false
	}
	return true
}
