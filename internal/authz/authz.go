// Package authz maps roles to the capabilities route guards check.
package authz

import (
	"slices"

	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/requestcontext"
)

type Capability string

const (
	ManageInvitations Capability = "invitations:manage"
	ManageSchools     Capability = "schools:manage"
	ManageClasses     Capability = "classes:manage"
	ViewClasses       Capability = "classes:view"
	ManageAssignments Capability = "assignments:manage"
	SubmitAssignments Capability = "assignments:submit"
	ViewStudents      Capability = "students:view"
	ManageUsers       Capability = "users:manage"
)

var roleCapabilities = map[id.Role][]Capability{
	id.RoleSuperAdmin: {ManageInvitations, ManageSchools, ViewClasses, ViewStudents, ManageUsers},
	id.RoleAdmin:      {ManageInvitations, ViewClasses, ViewStudents, ManageUsers},
	id.RoleTeacher:    {ManageClasses, ViewClasses, ManageAssignments, ViewStudents},
	id.RoleStudent:    {ViewClasses, SubmitAssignments},
	id.RoleParent:     {ViewClasses},
}

// Can reports whether role grants capability. Unknown roles grant nothing.
func Can(role id.Role, capability Capability) bool {
	return slices.Contains(roleCapabilities[role], capability)
}

// Capabilities lists what role grants.
func Capabilities(role id.Role) []Capability {
	return slices.Clone(roleCapabilities[role])
}

// Scope describes who a resource belongs to.
type Scope struct {
	OwnerID  id.UserID
	SchoolID *id.SchoolID
}

// InScope reports whether actor may read a resource of scope: the owner, any SuperAdmin,
// or an Admin of the owning school.
func InScope(actor requestcontext.Principal, scope Scope) bool {
	switch {
	case actor.UserID == scope.OwnerID:
		return true
	case actor.Role == id.RoleSuperAdmin:
		return true
	case actor.Role == id.RoleAdmin:
		return SameSchool(actor.SchoolID, scope.SchoolID)
	}
	return false
}

// SameSchool reports whether both sides name the same school. Unaffiliated never matches.
func SameSchool(a, b *id.SchoolID) bool {
	return a != nil && b != nil && *a == *b
}
