package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/requestcontext"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role       id.Role
		capability Capability
		want       bool
	}{
		{id.RoleSuperAdmin, ManageSchools, true},
		{id.RoleAdmin, ManageSchools, false},
		{id.RoleAdmin, ManageInvitations, true},
		{id.RoleTeacher, ManageInvitations, false},
		{id.RoleTeacher, ManageAssignments, true},
		{id.RoleStudent, SubmitAssignments, true},
		{id.RoleStudent, ManageClasses, false},
		{id.RoleVisitor, ViewClasses, false},
		{id.RolePlatformUser, ViewStudents, false},
		{id.Role("Janitor"), ViewClasses, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.capability), func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.capability))
		})
	}
}

func TestCapabilitiesReturnsCopy(t *testing.T) {
	caps := Capabilities(id.RoleTeacher)
	caps[0] = ManageSchools
	assert.False(t, Can(id.RoleTeacher, ManageSchools))
}

func TestInScope(t *testing.T) {
	schoolA, schoolB := id.NewSchoolID(), id.NewSchoolID()
	owner := id.NewUserID()
	scope := Scope{OwnerID: owner, SchoolID: &schoolA}

	tests := []struct {
		name  string
		actor requestcontext.Principal
		want  bool
	}{
		{"owner", requestcontext.Principal{UserID: owner, Role: id.RoleTeacher}, true},
		{"superadmin", requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleSuperAdmin}, true},
		{"admin of school", requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleAdmin, SchoolID: &schoolA}, true},
		{"admin of other school", requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleAdmin, SchoolID: &schoolB}, false},
		{"unaffiliated admin", requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleAdmin}, false},
		{"other teacher same school", requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleTeacher, SchoolID: &schoolA}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InScope(tt.actor, scope))
		})
	}

	assert.False(t, SameSchool(nil, nil))
}
