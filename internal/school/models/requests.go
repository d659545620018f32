package models

import (
	"strings"
	"time"

	dErrors "schoolbridge/pkg/domain-errors"
	s "schoolbridge/pkg/string"
	v "schoolbridge/pkg/validation"
)

type CreateSchoolRequest struct {
	Name          string `json:"name" validate:"notblank,max=200"`
	Address       string `json:"address" validate:"max=500"`
	ContactEmail  string `json:"contactEmail" validate:"omitempty,email,max=255"`
	ContactPhone  string `json:"contactPhone" validate:"max=32"`
	GradingScheme string `json:"gradingScheme" validate:"omitempty,oneof=percentage letter gpa pass_fail"`
	Timezone      string `json:"timezone" validate:"max=64"`
}

func (r *CreateSchoolRequest) Normalize() {
	s.TrimStrings(&r.Name, &r.Address, &r.ContactPhone, &r.GradingScheme, &r.Timezone)
	r.ContactEmail = s.NormalizeEmail(r.ContactEmail)
	r.GradingScheme = strings.ToLower(r.GradingScheme)
}

func (r *CreateSchoolRequest) Validate() error {
	if err := v.Validate(r); err != nil {
		return err
	}
	return validateTimezone(r.Timezone)
}

// UpdateSchoolRequest changes only the fields that are present.
type UpdateSchoolRequest struct {
	Name          *string `json:"name" validate:"omitempty,notblank,max=200"`
	Address       *string `json:"address" validate:"omitempty,max=500"`
	ContactEmail  *string `json:"contactEmail" validate:"omitempty,email,max=255"`
	ContactPhone  *string `json:"contactPhone" validate:"omitempty,max=32"`
	GradingScheme *string `json:"gradingScheme" validate:"omitempty,oneof=percentage letter gpa pass_fail"`
	Timezone      *string `json:"timezone" validate:"omitempty,max=64"`
	IsActive      *bool   `json:"isActive"`
}

func (r *UpdateSchoolRequest) Normalize() {
	for _, f := range []*string{r.Name, r.Address, r.ContactPhone, r.GradingScheme, r.Timezone} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if r.ContactEmail != nil {
		*r.ContactEmail = s.NormalizeEmail(*r.ContactEmail)
	}
	if r.GradingScheme != nil {
		*r.GradingScheme = strings.ToLower(*r.GradingScheme)
	}
}

func (r *UpdateSchoolRequest) Validate() error {
	if err := v.Validate(r); err != nil {
		return err
	}
	if r.Timezone != nil {
		return validateTimezone(*r.Timezone)
	}
	return nil
}

func validateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return dErrors.WithDetails(dErrors.CodeValidation, "timezone is invalid",
			map[string]string{"timezone": "timezone must be an IANA zone name"})
	}
	return nil
}
