package models

import (
	"strings"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/validation"
	s "schoolbridge/pkg/string"
	v "schoolbridge/pkg/validation"
)

// CreateClassRequest has no owner field; the owner is always the caller.
type CreateClassRequest struct {
	Name     string `json:"name" validate:"notblank,max=200"`
	Subject  string `json:"subject" validate:"notblank,max=200"`
	Schedule string `json:"schedule" validate:"max=500"`
	Room     string `json:"room" validate:"max=100"`
}

func (r *CreateClassRequest) Normalize() {
	s.TrimStrings(&r.Name, &r.Subject, &r.Schedule, &r.Room)
}

func (r *CreateClassRequest) Validate() error {
	return v.Validate(r)
}

type UpdateClassRequest struct {
	Name     *string `json:"name" validate:"omitempty,notblank,max=200"`
	Subject  *string `json:"subject" validate:"omitempty,notblank,max=200"`
	Schedule *string `json:"schedule" validate:"omitempty,max=500"`
	Room     *string `json:"room" validate:"omitempty,max=100"`
}

func (r *UpdateClassRequest) Normalize() {
	for _, f := range []*string{r.Name, r.Subject, r.Schedule, r.Room} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func (r *UpdateClassRequest) Validate() error {
	return v.Validate(r)
}

// AddStudentsRequest is the body of POST /classes/{id}/students.
type AddStudentsRequest struct {
	StudentIDs []string `json:"studentIds"`

	parsed []id.UserID
}

func (r *AddStudentsRequest) Normalize() {
	for i := range r.StudentIDs {
		r.StudentIDs[i] = strings.TrimSpace(r.StudentIDs[i])
	}
}

func (r *AddStudentsRequest) Validate() error {
	if len(r.StudentIDs) == 0 {
		return dErrors.WithDetails(dErrors.CodeValidation, "at least one student is required",
			map[string]string{"student_ids": "at least one student is required"})
	}
	if err := validation.CheckSliceCount("studentIds", len(r.StudentIDs), validation.MaxStudentsPerRequest); err != nil {
		return err
	}
	seen := make(map[id.UserID]struct{}, len(r.StudentIDs))
	r.parsed = make([]id.UserID, 0, len(r.StudentIDs))
	for _, raw := range r.StudentIDs {
		studentID, err := id.ParseUserID(raw)
		if err != nil {
			return dErrors.WithDetails(dErrors.CodeValidation, "student id is invalid",
				map[string]string{"student_ids": raw + " is not a valid id"})
		}
		if _, dup := seen[studentID]; dup {
			continue
		}
		seen[studentID] = struct{}{}
		r.parsed = append(r.parsed, studentID)
	}
	return nil
}

// IDs returns the de-duplicated student IDs. Valid only after Validate succeeded.
func (r *AddStudentsRequest) IDs() []id.UserID {
	return r.parsed
}
