package domain

import "slices"

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent      Role = "Student"
	RoleTeacher      Role = "Teacher"
	RoleParent       Role = "Parent"
	RoleAdmin        Role = "Admin"
	RoleSuperAdmin   Role = "SuperAdmin"
	RoleVisitor      Role = "Visitor"
	RolePlatformUser Role = "PlatformUser"
	// RoleStaff is only issued through invitations.
	RoleStaff Role = "Staff"
)

var accountRoles = []Role{
	RoleStudent, RoleTeacher, RoleParent, RoleAdmin,
	RoleSuperAdmin, RoleVisitor, RolePlatformUser, RoleStaff,
}

// IsValid reports whether r belongs to the closed role set.
func (r Role) IsValid() bool {
	return slices.Contains(accountRoles, r)
}

func (r Role) String() string { return string(r) }

// IsSchoolScoped reports whether accounts with this role belong to a single school.
func (r Role) IsSchoolScoped() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleStaff, RoleAdmin:
		return true
	default:
		return false
	}
}
