package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolbridge/internal/invitation/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/requestcontext"
)

func TestResolve(t *testing.T) {
	school := id.NewSchoolID()
	other := id.NewSchoolID()
	superAdmin := requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleSuperAdmin}
	admin := requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleAdmin, SchoolID: &school}
	teacher := requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleTeacher, SchoolID: &school}

	tests := []struct {
		name       string
		issuer     requestcontext.Principal
		role       id.Role
		requested  *id.SchoolID
		wantSchool *id.SchoolID
		wantCode   dErrors.Code
	}{
		{name: "superadmin invites admin without school", issuer: superAdmin, role: id.RoleAdmin},
		{name: "superadmin invites admin into school", issuer: superAdmin, role: id.RoleAdmin, requested: &other, wantSchool: &other},
		{name: "superadmin cannot invite teacher", issuer: superAdmin, role: id.RoleTeacher, wantCode: dErrors.CodeForbidden},
		{name: "admin school is forced", issuer: admin, role: id.RoleStudent, wantSchool: &school},
		{name: "admin can invite staff", issuer: admin, role: id.RoleStaff, requested: &school, wantSchool: &school},
		{name: "admin cannot target other school", issuer: admin, role: id.RoleParent, requested: &other, wantCode: dErrors.CodeForbidden},
		{name: "admin cannot invite admin", issuer: admin, role: id.RoleAdmin, wantCode: dErrors.CodeForbidden},
		{name: "teacher cannot invite", issuer: teacher, role: id.RoleStudent, wantCode: dErrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			school, err := Resolve(tt.issuer, tt.role, tt.requested)
			if tt.wantCode != "" {
				assert.True(t, dErrors.HasCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSchool, school)
		})
	}
}

func TestResolveProvision(t *testing.T) {
	school := id.NewSchoolID()
	superAdmin := requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleSuperAdmin}
	admin := requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleAdmin, SchoolID: &school}

	tests := []struct {
		name       string
		issuer     requestcontext.Principal
		role       id.Role
		requested  *id.SchoolID
		wantSchool *id.SchoolID
		wantCode   dErrors.Code
	}{
		{name: "teacher into a school", issuer: superAdmin, role: id.RoleTeacher, requested: &school, wantSchool: &school},
		{name: "admin without school", issuer: superAdmin, role: id.RoleAdmin},
		{name: "student needs a school", issuer: superAdmin, role: id.RoleStudent, wantCode: dErrors.CodeBadRequest},
		{name: "superadmin cannot be provisioned", issuer: superAdmin, role: id.RoleSuperAdmin, wantCode: dErrors.CodeForbidden},
		{name: "visitor cannot be provisioned", issuer: superAdmin, role: id.RoleVisitor, wantCode: dErrors.CodeForbidden},
		{name: "admins cannot provision", issuer: admin, role: id.RoleTeacher, requested: &school, wantCode: dErrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			school, err := ResolveProvision(tt.issuer, tt.role, tt.requested)
			if tt.wantCode != "" {
				assert.True(t, dErrors.HasCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSchool, school)
		})
	}
}

func TestScopeAndInScope(t *testing.T) {
	school := id.NewSchoolID()
	other := id.NewSchoolID()
	admin := requestcontext.Principal{Role: id.RoleAdmin, SchoolID: &school}
	superAdmin := requestcontext.Principal{Role: id.RoleSuperAdmin}

	filter, err := Scope(admin)
	require.NoError(t, err)
	assert.Equal(t, &school, filter.SchoolID)
	assert.NotContains(t, filter.Roles, id.RoleAdmin)

	filter, err = Scope(superAdmin)
	require.NoError(t, err)
	assert.Equal(t, []id.Role{id.RoleAdmin}, filter.Roles)
	assert.Nil(t, filter.SchoolID)

	_, err = Scope(requestcontext.Principal{Role: id.RoleStudent})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	assert.True(t, InScope(admin, &models.Invitation{Role: id.RoleTeacher, SchoolID: &school}))
	assert.False(t, InScope(admin, &models.Invitation{Role: id.RoleTeacher, SchoolID: &other}))
	assert.False(t, InScope(admin, &models.Invitation{Role: id.RoleAdmin, SchoolID: &school}))
	assert.True(t, InScope(superAdmin, &models.Invitation{Role: id.RoleAdmin}))
	assert.False(t, InScope(superAdmin, &models.Invitation{Role: id.RoleTeacher, SchoolID: &school}))
}
