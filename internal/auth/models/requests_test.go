package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
)

func TestSignupRequest_Prepare(t *testing.T) {
	req := &SignupRequest{Email: " Ada@School.IO", Password: "long-enough", FullName: " Ada ", SignupType: " Visitor "}
	assert.NoError(t, httputil.PrepareRequest(req))
	assert.Equal(t, "ada@school.io", req.Email)
	assert.Equal(t, "visitor", req.SignupType)

	short := &SignupRequest{Email: "ada@school.io", Password: "short", FullName: "Ada"}
	err := httputil.PrepareRequest(short)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestLoginRequest_RejectsUnknownRole(t *testing.T) {
	err := httputil.PrepareRequest(&LoginRequest{Email: "a@b.io", Password: "pw", Role: "Janitor"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	assert.NoError(t, httputil.PrepareRequest(&LoginRequest{Email: "a@b.io", Password: "pw", Role: "Teacher"}))
}

func TestUpdateProfileRequest_RequiresAField(t *testing.T) {
	err := httputil.PrepareRequest(&UpdateProfileRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	name := " Ada "
	req := &UpdateProfileRequest{FullName: &name}
	assert.NoError(t, httputil.PrepareRequest(req))
	assert.Equal(t, "Ada", *req.FullName)
}

func TestGoogleUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", GoogleUser{GivenName: "Ada", FamilyName: "Lovelace"}.DisplayName())
	assert.Equal(t, "a@b.io", GoogleUser{Email: "a@b.io"}.DisplayName())
}
