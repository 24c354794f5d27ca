package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  host: db
  port: 5432
  user: app
  password: secret
  dbname: birthdays
currency:
  ttl: 30m
log:
  level: debug
`), 0o600))

	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FLW_WEBHOOK_HASH", "hook-secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "hook-secret", cfg.Payments.WebhookHash)
	assert.Equal(t, 30*time.Minute, cfg.Currency.TTL)
	assert.Equal(t, 32, cfg.Currency.MaxEntries)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.RateLimits.Contact)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=birthdays sslmode=disable", cfg.Database.DSN())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Database.DSN())
	assert.Equal(t, "https://api.flutterwave.com/v3", cfg.Payments.BaseURL)
	assert.Equal(t, time.Hour, cfg.Currency.TTL)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
