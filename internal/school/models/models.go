package models

import (
	"time"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
)

// GradingScheme is how a school reports grades.
type GradingScheme string

const (
	GradingPercentage GradingScheme = "percentage"
	GradingLetter     GradingScheme = "letter"
	GradingGPA        GradingScheme = "gpa"
	GradingPassFail   GradingScheme = "pass_fail"
)

func (g GradingScheme) IsValid() bool {
	switch g {
	case GradingPercentage, GradingLetter, GradingGPA, GradingPassFail:
		return true
	}
	return false
}

// School is the tenant boundary for admins, classes and invitations.
type School struct {
	ID            id.SchoolID   `json:"id"`
	Name          string        `json:"name"`
	Address       string        `json:"address,omitempty"`
	ContactEmail  string        `json:"contactEmail,omitempty"`
	ContactPhone  string        `json:"contactPhone,omitempty"`
	GradingScheme GradingScheme `json:"gradingScheme"`
	Timezone      string        `json:"timezone"`
	IsActive      bool          `json:"isActive"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Settings holds the academic configuration of a school.
type Settings struct {
	GradingScheme GradingScheme
	Timezone      string
}

func NewSchool(name string, settings Settings, now time.Time) (*School, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "school name cannot be empty")
	}
	if settings.GradingScheme == "" {
		settings.GradingScheme = GradingPercentage
	}
	if settings.Timezone == "" {
		settings.Timezone = "UTC"
	}
	if !settings.GradingScheme.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "grading scheme is invalid")
	}
	return &School{
		ID:            id.NewSchoolID(),
		Name:          name,
		GradingScheme: settings.GradingScheme,
		Timezone:      settings.Timezone,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Deactivate hides the school from new activity. It fails if the school is already inactive.
func (s *School) Deactivate(now time.Time) error {
	if !s.IsActive {
		return dErrors.New(dErrors.CodeConflict, "school is already inactive")
	}
	s.IsActive = false
	s.UpdatedAt = now
	return nil
}

func (s *School) Reactivate(now time.Time) error {
	if s.IsActive {
		return dErrors.New(dErrors.CodeConflict, "school is already active")
	}
	s.IsActive = true
	s.UpdatedAt = now
	return nil
}
