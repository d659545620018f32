// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "schoolbridge/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where SchoolID is expected.
type (
	UserID       uuid.UUID
	SessionID    uuid.UUID
	SchoolID     uuid.UUID
	InvitationID uuid.UUID
	ClassID      uuid.UUID
	AssignmentID uuid.UUID
)

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewSessionID() SessionID       { return SessionID(uuid.New()) }
func NewSchoolID() SchoolID         { return SchoolID(uuid.New()) }
func NewInvitationID() InvitationID { return InvitationID(uuid.New()) }
func NewClassID() ClassID           { return ClassID(uuid.New()) }
func NewAssignmentID() AssignmentID { return AssignmentID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseSchoolID(s string) (SchoolID, error) {
	id, err := parseUUID(s, "school ID")
	return SchoolID(id), err
}

func ParseInvitationID(s string) (InvitationID, error) {
	id, err := parseUUID(s, "invitation ID")
	return InvitationID(id), err
}

func ParseClassID(s string) (ClassID, error) {
	id, err := parseUUID(s, "class ID")
	return ClassID(id), err
}

func ParseAssignmentID(s string) (AssignmentID, error) {
	id, err := parseUUID(s, "assignment ID")
	return AssignmentID(id), err
}

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id SessionID) String() string    { return uuid.UUID(id).String() }
func (id SchoolID) String() string     { return uuid.UUID(id).String() }
func (id InvitationID) String() string { return uuid.UUID(id).String() }
func (id ClassID) String() string      { return uuid.UUID(id).String() }
func (id AssignmentID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SchoolID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id InvitationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ClassID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AssignmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshalling lets IDs appear directly in JSON payloads.

func (id UserID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id SchoolID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id InvitationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ClassID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id AssignmentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error       { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *SessionID) UnmarshalText(b []byte) error    { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *SchoolID) UnmarshalText(b []byte) error     { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *InvitationID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *ClassID) UnmarshalText(b []byte) error      { return unmarshalUUID((*uuid.UUID)(id), b) }
func (id *AssignmentID) UnmarshalText(b []byte) error { return unmarshalUUID((*uuid.UUID)(id), b) }

func unmarshalUUID(dst *uuid.UUID, b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid id format")
	}
	*dst = parsed
	return nil
}

// parseUUID is the shared validation logic. Nil UUIDs are rejected.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label+" format")
	}
	return id, nil
}
