package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "slack-archv.sqlite", cfg.Database.Path)
	assert.Equal(t, 999, cfg.Database.MaxParams)
	assert.Equal(t, 1000, cfg.Slack.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Slack.Timeout)
	assert.Equal(t, []string{"public_channel", "private_channel"}, cfg.Slack.ChannelTypes)
	assert.Zero(t, cfg.Sync.DiffLookbackPages)
	assert.False(t, cfg.Sync.Stars)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Empty(t, cfg.HTTP.AllowedOrigins)
	err = cfg.RequireToken()
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAuthFailed))
}

func TestLoadFromEnvFile(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "")
	t.Setenv("SYNC_DIFF_LOOKBACK_PAGES", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("HTTP_CORS_ORIGINS", "")

	path := filepath.Join(t.TempDir(), "archv.env")
	content := "SLACK_TOKEN=xoxb-file\nSYNC_DIFF_LOOKBACK_PAGES=3\nDB_PATH=/tmp/team.sqlite\nHTTP_CORS_ORIGINS=https://a.example, https://b.example\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "xoxb-file", cfg.Slack.Token)
	assert.Equal(t, 3, cfg.Sync.DiffLookbackPages)
	assert.Equal(t, "/tmp/team.sqlite", cfg.Database.Path)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.NoError(t, cfg.RequireToken())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
