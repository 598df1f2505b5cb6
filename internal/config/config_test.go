package config

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func secretEnv(b byte) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{b}, 32))
}

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", secretEnv(0x0a))
	t.Setenv("JWT_REFRESH_SECRET", secretEnv(0x0b))
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/auth?sslmode=disable")
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	require.Len(t, cfg.AccessTokenSecret, 32)
	require.Len(t, cfg.RefreshTokenSecret, 32)
	require.Equal(t, "menuhub-auth", cfg.ServiceName)
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", secretEnv(0x0b))
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/auth")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_ACCESS_SECRET")
}

func TestLoadRejectsIdenticalSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", secretEnv(0x0a))
	t.Setenv("JWT_REFRESH_SECRET", secretEnv(0x0a))
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/auth")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "must differ")
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", base64.StdEncoding.EncodeToString([]byte("short")))
	t.Setenv("JWT_REFRESH_SECRET", secretEnv(0x0b))
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/auth")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", secretEnv(0x0a))
	t.Setenv("JWT_REFRESH_SECRET", secretEnv(0x0b))
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadTTLOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("REFRESH_TOKEN_TTL", "48h")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 48*time.Hour, cfg.RefreshTokenTTL)
}
