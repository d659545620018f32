package models

import (
	"strings"
	"time"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/validation"
	s "schoolbridge/pkg/string"
	v "schoolbridge/pkg/validation"
)

type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"notblank,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
	ClassID     string    `json:"classId" validate:"required,uuid"`
	MaxPoints   *int      `json:"maxPoints" validate:"omitempty,min=1,max=10000"`
	Attachments []string  `json:"attachments" validate:"omitempty,dive,url,max=2048"`
	IsPublished bool      `json:"isPublished"`
}

func (r *CreateAssignmentRequest) Normalize() {
	s.TrimStrings(&r.Title, &r.Description, &r.ClassID)
	r.ClassID = strings.ToLower(r.ClassID)
	for i := range r.Attachments {
		r.Attachments[i] = strings.TrimSpace(r.Attachments[i])
	}
}

func (r *CreateAssignmentRequest) Validate() error {
	if err := validation.CheckSliceCount("attachments", len(r.Attachments), validation.MaxAttachments); err != nil {
		return err
	}
	return v.Validate(r)
}

// ParsedClassID is valid only after Validate succeeded.
func (r *CreateAssignmentRequest) ParsedClassID() id.ClassID {
	classID, _ := id.ParseClassID(r.ClassID)
	return classID
}

type UpdateAssignmentRequest struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	DueDate     *time.Time `json:"dueDate"`
	MaxPoints   *int       `json:"maxPoints" validate:"omitempty,min=1,max=10000"`
	Attachments *[]string  `json:"attachments" validate:"omitempty,dive,url,max=2048"`
}

func (r *UpdateAssignmentRequest) Normalize() {
	for _, f := range []*string{r.Title, r.Description} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if r.Attachments != nil {
		for i := range *r.Attachments {
			(*r.Attachments)[i] = strings.TrimSpace((*r.Attachments)[i])
		}
	}
}

func (r *UpdateAssignmentRequest) Validate() error {
	if r.Attachments != nil {
		if err := validation.CheckSliceCount("attachments", len(*r.Attachments), validation.MaxAttachments); err != nil {
			return err
		}
	}
	return v.Validate(r)
}

type SubmitRequest struct {
	Content string `json:"content" validate:"notblank,max=10000"`
}

func (r *SubmitRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
}

func (r *SubmitRequest) Validate() error {
	return v.Validate(r)
}

// GradeRequest grades one student's submission. The upper bound depends on the assignment
// and is checked by the service.
type GradeRequest struct {
	StudentID string `json:"studentId" validate:"required,uuid"`
	Grade     *int   `json:"grade" validate:"required,min=0"`
	Feedback  string `json:"feedback" validate:"max=5000"`
}

func (r *GradeRequest) Normalize() {
	s.TrimStrings(&r.StudentID, &r.Feedback)
	r.StudentID = strings.ToLower(r.StudentID)
}

func (r *GradeRequest) Validate() error {
	if err := v.Validate(r); err != nil {
		return err
	}
	if _, err := id.ParseUserID(r.StudentID); err != nil {
		return dErrors.WithDetails(dErrors.CodeValidation, "student id is invalid",
			map[string]string{"student_id": "student_id must be a valid uuid"})
	}
	return nil
}

// ParsedStudentID is valid only after Validate succeeded.
func (r *GradeRequest) ParsedStudentID() id.UserID {
	studentID, _ := id.ParseUserID(r.StudentID)
	return studentID
}
