package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "schoolbridge/pkg/domain-errors"
)

func userInfoServer(t *testing.T, wantToken string, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+wantToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerify(t *testing.T) {
	body := `{"sub":"g-1","email":"Ada@Example.com","email_verified":true,"name":"Ada"}`
	srv := userInfoServer(t, "good-token", body)
	v := NewVerifier(WithUserInfoURL(srv.URL), WithHTTPClient(srv.Client()))

	t.Run("matching identity", func(t *testing.T) {
		identity, err := v.Verify(context.Background(), "good-token", "g-1", "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Ada", identity.Name)
	})

	t.Run("rejected token", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "bad-token", "g-1", "ada@example.com")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("subject mismatch", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "good-token", "g-2", "ada@example.com")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
