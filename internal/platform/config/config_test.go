package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 72*time.Hour, cfg.Invitation.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Invitation.CleanupInterval)
	assert.Equal(t, "schoolbridge://activate", cfg.Invitation.DeepLinkBase)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestFromEnv_ProductionRejectsDefaultSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default JWT secrets")

	t.Setenv("JWT_ACCESS_SECRET", "a-real-access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "a-real-refresh-secret")
	_, err = FromEnv()
	assert.NoError(t, err)
}

func TestFromEnv_RejectsSharedSecret(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_ACCESS_SECRET", "same")
	t.Setenv("JWT_REFRESH_SECRET", "same")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SCHOOLBRIDGE_DOTENV_PROBE=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SCHOOLBRIDGE_DOTENV_PROBE") })

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	assert.Equal(t, "loaded", os.Getenv("SCHOOLBRIDGE_DOTENV_PROBE"))
}
