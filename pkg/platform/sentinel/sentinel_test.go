package sentinel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictError(t *testing.T) {
	err := fmt.Errorf("insert user: %w", &ConflictError{Field: "email"})

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))

	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "email", ce.Field)
	assert.Equal(t, "insert user: email already exists", err.Error())
}
