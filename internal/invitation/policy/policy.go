// Package policy decides which roles an issuer may invite and which invitations they may see.
package policy

import (
	"slices"

	"schoolbridge/internal/invitation/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/requestcontext"
)

type rule struct {
	invitable []id.Role
	ownSchool bool
}

var rules = map[id.Role]rule{
	id.RoleSuperAdmin: {invitable: []id.Role{id.RoleAdmin}},
	id.RoleAdmin: {
		invitable: []id.Role{id.RoleStudent, id.RoleTeacher, id.RoleParent, id.RoleStaff},
		ownSchool: true,
	},
}

// Platform provisioning is the SuperAdmin-only path behind POST /auth/invitations. It covers
// Admin and every school role; school roles must name the school they join.
var (
	provisionable = []id.Role{id.RoleAdmin, id.RoleTeacher, id.RoleStudent, id.RoleParent, id.RoleStaff}
	schoolBound   = []id.Role{id.RoleTeacher, id.RoleStudent, id.RoleParent, id.RoleStaff}
)

// CanProvision reports whether issuer may use platform provisioning.
func CanProvision(issuer requestcontext.Principal) bool {
	return issuer.Role == id.RoleSuperAdmin
}

// ResolveProvision checks one provisioning entry and returns the school it is bound to.
func ResolveProvision(issuer requestcontext.Principal, role id.Role, requested *id.SchoolID) (*id.SchoolID, error) {
	if !CanProvision(issuer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only superadmins can provision accounts")
	}
	if !slices.Contains(provisionable, role) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot invite role "+string(role))
	}
	if requested == nil && slices.Contains(schoolBound, role) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "school_id is required for role "+string(role))
	}
	return requested, nil
}

// CanInvite reports whether issuer may send any invitations at all.
func CanInvite(issuer requestcontext.Principal) bool {
	_, ok := rules[issuer.Role]
	return ok
}

// InvitableRoles lists the roles issuer may invite.
func InvitableRoles(issuer requestcontext.Principal) []id.Role {
	return slices.Clone(rules[issuer.Role].invitable)
}

// Resolve checks one requested entry against the issuer's rule and returns the school the
// invitation is bound to. Admins always invite into their own school; a different
// school_id is rejected rather than silently rewritten.
func Resolve(issuer requestcontext.Principal, role id.Role, requested *id.SchoolID) (*id.SchoolID, error) {
	r, ok := rules[issuer.Role]
	if !ok {
		return nil, dErrors.New(dErrors.CodeForbidden, "role cannot send invitations")
	}
	if !slices.Contains(r.invitable, role) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot invite role "+string(role))
	}
	if !r.ownSchool {
		return requested, nil
	}
	if issuer.SchoolID == nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "issuer has no school")
	}
	if requested != nil && *requested != *issuer.SchoolID {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot invite into another school")
	}
	school := *issuer.SchoolID
	return &school, nil
}

// Scope returns the listing filter issuer is confined to.
func Scope(issuer requestcontext.Principal) (models.ListFilter, error) {
	r, ok := rules[issuer.Role]
	if !ok {
		return models.ListFilter{}, dErrors.New(dErrors.CodeForbidden, "role cannot manage invitations")
	}
	filter := models.ListFilter{Roles: slices.Clone(r.invitable)}
	if r.ownSchool {
		if issuer.SchoolID == nil {
			return models.ListFilter{}, dErrors.New(dErrors.CodeForbidden, "issuer has no school")
		}
		school := *issuer.SchoolID
		filter.SchoolID = &school
	}
	return filter, nil
}

// InScope reports whether inv is visible to issuer.
func InScope(issuer requestcontext.Principal, inv *models.Invitation) bool {
	r, ok := rules[issuer.Role]
	if !ok || !slices.Contains(r.invitable, inv.Role) {
		return false
	}
	if !r.ownSchool {
		return true
	}
	return issuer.SchoolID != nil && inv.SchoolID != nil && *issuer.SchoolID == *inv.SchoolID
}
