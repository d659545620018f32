package secrets

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "schoolbridge/pkg/domain-errors"
)

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), a)
	assert.NotEqual(t, a, b)
}

func TestHashToken(t *testing.T) {
	h := HashToken("refresh-token")
	assert.Len(t, h, 64)
	assert.True(t, TokenHashEqual(h, HashToken("refresh-token")))
	assert.False(t, TokenHashEqual(h, HashToken("other")))
}

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery")
	require.NoError(t, err)

	assert.NoError(t, Verify("correct horse battery", hash))

	err = Verify("wrong", hash)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = Verify("anything", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = Hash("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
