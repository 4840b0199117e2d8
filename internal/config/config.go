// Package config defines the top-level configuration for the betslip service
// and provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BETSLIP_* environment variables.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Session  SessionConfig  `toml:"session"`
	Notify   NotifyConfig   `toml:"notify"`
	Contact  ContactConfig  `toml:"contact"`
	Message  MessageConfig  `toml:"message"`
	Receipts ReceiptsConfig `toml:"receipts"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// StorageConfig selects where carts are saved.
type StorageConfig struct {
	// Backend is one of memory, file, redis, postgres, s3.
	Backend  string   `toml:"backend"`
	SlotName string   `toml:"slot_name"`
	Dir      string   `toml:"dir"`
	TTL      duration `toml:"ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is used whenever it is
// enabled or selected as the storage backend.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// SessionConfig controls visitor sessions.
type SessionConfig struct {
	CookieName    string   `toml:"cookie_name"`
	SecureCookie  bool     `toml:"secure_cookie"`
	IdleTimeout   duration `toml:"idle_timeout"`
	SweepInterval duration `toml:"sweep_interval"`
}

// NotifyConfig holds operator alert channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Kinds             []string `toml:"kinds"`
}

// ContactConfig controls the destination contact lookup.
type ContactConfig struct {
	// Source is static or postgres.
	Source   string   `toml:"source"`
	Number   string   `toml:"number"`
	CacheTTL duration `toml:"cache_ttl"`
}

// MessageConfig controls the outbound message.
type MessageConfig struct {
	Brand    string `toml:"brand"`
	LinkBase string `toml:"link_base"`
}

// ReceiptsConfig selects where successful sends are recorded.
type ReceiptsConfig struct {
	S3       bool   `toml:"s3"`
	Postgres bool   `toml:"postgres"`
	Prefix   string `toml:"prefix"`
	// Stream, when set, also appends receipts to this Redis stream.
	Stream string `toml:"stream"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{
			Backend:  "memory",
			SlotName: "betting-cart",
			Dir:      "data/carts",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "betslip",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "betslip",
			ForcePathStyle: true,
			Prefix:         "carts",
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Session: SessionConfig{
			CookieName:    "betslip_session",
			IdleTimeout:   duration{30 * time.Minute},
			SweepInterval: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Kinds: []string{"error"},
		},
		Contact: ContactConfig{
			Source:   "static",
			CacheTTL: duration{5 * time.Minute},
		},
		Message: MessageConfig{
			Brand:    "La Jugada Prohibida",
			LinkBase: "https://wa.me",
		},
		Receipts: ReceiptsConfig{
			Prefix: "receipts",
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// NeedsRedis reports whether any component uses Redis.
func (c *Config) NeedsRedis() bool {
	return c.Redis.Enabled || c.Storage.Backend == "redis" || c.Receipts.Stream != ""
}

// NeedsPostgres reports whether any component uses PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.Storage.Backend == "postgres" || c.Contact.Source == "postgres" || c.Receipts.Postgres
}

// NeedsS3 reports whether any component uses object storage.
func (c *Config) NeedsS3() bool {
	return c.Storage.Backend == "s3" || c.Receipts.S3
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"inspect": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validBackends = map[string]bool{
	"memory":   true,
	"file":     true,
	"redis":    true,
	"postgres": true,
	"s3":       true,
}

var validContactSources = map[string]bool{
	"static":   true,
	"postgres": true,
}

var validNoticeKinds = map[string]bool{
	"success": true,
	"warning": true,
	"error":   true,
}

// Validate checks the configuration for logical errors and returns a combined
// error describing every problem found, or nil if the config is valid.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, inspect)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Storage
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: memory, file, redis, postgres, s3)", c.Storage.Backend))
	}
	if strings.TrimSpace(c.Storage.SlotName) == "" {
		errs = append(errs, "storage: slot_name must not be empty")
	}
	if c.Storage.Backend == "file" && c.Storage.Dir == "" {
		errs = append(errs, "storage: dir must be set for the file backend")
	}
	if c.Storage.TTL.Duration < 0 {
		errs = append(errs, "storage: ttl must not be negative")
	}

	// Postgres
	if c.NeedsPostgres() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.NeedsRedis() {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.NeedsS3() {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server
	if strings.ToLower(c.Mode) == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Session
	if c.Session.CookieName == "" {
		errs = append(errs, "session: cookie_name must not be empty")
	}
	if c.Session.IdleTimeout.Duration < 0 {
		errs = append(errs, "session: idle_timeout must not be negative")
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	for _, k := range c.Notify.Kinds {
		if !validNoticeKinds[strings.ToLower(k)] {
			errs = append(errs, fmt.Sprintf("notify: unknown kind %q (valid: success, warning, error)", k))
		}
	}

	// Contact
	if !validContactSources[c.Contact.Source] {
		errs = append(errs, fmt.Sprintf("contact: unknown source %q (valid: static, postgres)", c.Contact.Source))
	}

	// Message
	if u, err := url.Parse(c.Message.LinkBase); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("message: link_base %q must be an absolute URL", c.Message.LinkBase))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
