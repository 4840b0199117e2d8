package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "betting-cart", cfg.Storage.SlotName)
	assert.Equal(t, "https://wa.me", cfg.Message.LinkBase)
	assert.Equal(t, "La Jugada Prohibida", cfg.Message.Brand)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout.Duration)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "betslip.toml")
	body := `
mode = "inspect"
log_level = "debug"

[storage]
backend = "file"
dir = "/tmp/carts"
ttl = "48h"

[contact]
number = "5491100000000"

[session]
idle_timeout = "10m"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "inspect", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/carts", cfg.Storage.Dir)
	assert.Equal(t, 48*time.Hour, cfg.Storage.TTL.Duration)
	assert.Equal(t, "5491100000000", cfg.Contact.Number)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "betting-cart", cfg.Storage.SlotName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BETSLIP_STORAGE_BACKEND", "redis")
	t.Setenv("BETSLIP_REDIS_ADDR", "cache:6380")
	t.Setenv("BETSLIP_SERVER_PORT", "9090")
	t.Setenv("BETSLIP_SERVER_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("BETSLIP_SESSION_IDLE_TIMEOUT", "90s")
	t.Setenv("BETSLIP_RECEIPTS_POSTGRES", "true")
	t.Setenv("BETSLIP_SERVER_RATE_LIMIT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 90*time.Second, cfg.Session.IdleTimeout.Duration)
	assert.True(t, cfg.Receipts.Postgres)
	assert.Equal(t, 120, cfg.Server.RateLimit, "unparseable values are ignored")
	assert.True(t, cfg.NeedsRedis())
	assert.True(t, cfg.NeedsPostgres())
	assert.False(t, cfg.NeedsS3())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Storage.Backend = "floppy"
	cfg.Contact.Source = "ldap"
	cfg.Message.LinkBase = "wa.me"
	cfg.Notify.TelegramToken = "token-only"
	cfg.Notify.Kinds = []string{"error", "panic"}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`unknown mode "trade"`,
		`unknown log_level "loud"`,
		`storage: unknown backend "floppy"`,
		`contact: unknown source "ldap"`,
		`message: link_base "wa.me"`,
		"telegram_token and telegram_chat_id",
		`notify: unknown kind "panic"`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateBackendRequirements(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"file needs dir", func(c *Config) { c.Storage.Backend = "file"; c.Storage.Dir = "" }, "storage: dir"},
		{"redis needs addr", func(c *Config) { c.Storage.Backend = "redis"; c.Redis.Addr = "" }, "redis: addr"},
		{"postgres needs host", func(c *Config) { c.Contact.Source = "postgres"; c.Postgres.Host = "" }, "postgres: host"},
		{"stream needs redis addr", func(c *Config) { c.Receipts.Stream = "receipts"; c.Redis.Addr = "" }, "redis: addr"},
		{"s3 needs bucket", func(c *Config) { c.Receipts.S3 = true; c.S3.Bucket = "" }, "s3: bucket"},
		{"pool bounds", func(c *Config) { c.Storage.Backend = "postgres"; c.Postgres.PoolMinConns = 20 }, "pool_min_conns must not exceed"},
		{"rate window", func(c *Config) { c.Server.RateWindow.Duration = 0 }, "rate_window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateIgnoresUnusedBackends(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Addr = ""
	cfg.Postgres.Host = ""
	cfg.S3.Bucket = ""
	require.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pg-secret"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APIKey = "api-secret"
	cfg.Notify.TelegramToken = "tg-secret"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.Redis.Password, "empty secrets stay empty")

	out.Server.CORSOrigins[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.Server.CORSOrigins[0])
	assert.Equal(t, "pg-secret", cfg.Postgres.Password)
}
