package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("VISITOR_RETENTION", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.Mode)
	require.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	require.Equal(t, 8760*time.Hour, cfg.Storage.VisitorRetention)
	require.Empty(t, cfg.Site.ContentDir)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SITE_URL", "https://example.com/")
	t.Setenv("VISITOR_RETENTION", "720h")
	t.Setenv("SMTP_USER", "mailer")
	t.Setenv("SMTP_PASS", "secret")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "https://example.com", cfg.Site.URL)
	require.Equal(t, 720*time.Hour, cfg.Storage.VisitorRetention)
	require.True(t, cfg.SMTP.Configured())
	require.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestValidateReleaseRequiresAdminCredentials(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ADMIN_PASSWORD")

	t.Setenv("ADMIN_USERNAME", "owner")
	t.Setenv("ADMIN_PASSWORD", "long-and-random")
	_, err = Load()
	require.NoError(t, err)
}

func TestValidateReleaseAllowsDefaultUsername(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("ADMIN_USERNAME", defaultAdminUsername)
	t.Setenv("ADMIN_PASSWORD", "long-and-random")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Admin.UsesDefaults())
	require.True(t, AdminConfig{Username: "owner", Password: defaultAdminPassword}.UsesDefaults())
}

func TestSlogLevelFallsBackToInfo(t *testing.T) {
	require.Equal(t, slog.LevelInfo, LogConfig{Level: "verbose"}.SlogLevel())
	require.Equal(t, slog.LevelWarn, LogConfig{Level: "WARNING"}.SlogLevel())
}
