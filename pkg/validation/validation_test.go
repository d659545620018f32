package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "schoolbridge/pkg/domain-errors"
)

type activation struct {
	Token    string `validate:"required,token64"`
	FullName string `validate:"notblank"`
	Password string `validate:"required,min=8"`
}

func TestValidate(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		err := Validate(activation{Token: strings.Repeat("ab", 32), FullName: "Ada", Password: "longenough"})
		assert.NoError(t, err)
	})

	t.Run("collects every failing field", func(t *testing.T) {
		err := Validate(activation{Token: "xyz", FullName: "  ", Password: "short"})
		require.Error(t, err)

		var domainErr *dErrors.Error
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, dErrors.CodeValidation, domainErr.Code)
		assert.Equal(t, "token must be a 64 character hex token", domainErr.Message)
		assert.Equal(t, "full_name must not be blank", domainErr.Details["full_name"])
		assert.Equal(t, "password must be at least 8", domainErr.Details["password"])
	})
}
