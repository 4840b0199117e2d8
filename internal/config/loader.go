package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BETSLIP_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BETSLIP_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Storage ──
	setStr(&cfg.Storage.Backend, "BETSLIP_STORAGE_BACKEND")
	setStr(&cfg.Storage.SlotName, "BETSLIP_STORAGE_SLOT_NAME")
	setStr(&cfg.Storage.Dir, "BETSLIP_STORAGE_DIR")
	setDuration(&cfg.Storage.TTL, "BETSLIP_STORAGE_TTL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.DSN, "BETSLIP_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BETSLIP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BETSLIP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BETSLIP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BETSLIP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BETSLIP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BETSLIP_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BETSLIP_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BETSLIP_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BETSLIP_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "BETSLIP_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BETSLIP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BETSLIP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BETSLIP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BETSLIP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BETSLIP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BETSLIP_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BETSLIP_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BETSLIP_S3_REGION")
	setStr(&cfg.S3.Bucket, "BETSLIP_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BETSLIP_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BETSLIP_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BETSLIP_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BETSLIP_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "BETSLIP_S3_PREFIX")

	// ── Server ──
	setInt(&cfg.Server.Port, "BETSLIP_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BETSLIP_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BETSLIP_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "BETSLIP_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "BETSLIP_SERVER_RATE_WINDOW")

	// ── Session ──
	setStr(&cfg.Session.CookieName, "BETSLIP_SESSION_COOKIE_NAME")
	setBool(&cfg.Session.SecureCookie, "BETSLIP_SESSION_SECURE_COOKIE")
	setDuration(&cfg.Session.IdleTimeout, "BETSLIP_SESSION_IDLE_TIMEOUT")
	setDuration(&cfg.Session.SweepInterval, "BETSLIP_SESSION_SWEEP_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BETSLIP_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BETSLIP_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BETSLIP_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Kinds, "BETSLIP_NOTIFY_KINDS")

	// ── Contact ──
	setStr(&cfg.Contact.Source, "BETSLIP_CONTACT_SOURCE")
	setStr(&cfg.Contact.Number, "BETSLIP_CONTACT_NUMBER")
	setDuration(&cfg.Contact.CacheTTL, "BETSLIP_CONTACT_CACHE_TTL")

	// ── Message ──
	setStr(&cfg.Message.Brand, "BETSLIP_MESSAGE_BRAND")
	setStr(&cfg.Message.LinkBase, "BETSLIP_MESSAGE_LINK_BASE")

	// ── Receipts ──
	setBool(&cfg.Receipts.S3, "BETSLIP_RECEIPTS_S3")
	setBool(&cfg.Receipts.Postgres, "BETSLIP_RECEIPTS_POSTGRES")
	setStr(&cfg.Receipts.Prefix, "BETSLIP_RECEIPTS_PREFIX")
	setStr(&cfg.Receipts.Stream, "BETSLIP_RECEIPTS_STREAM")

	// ── Top-level ──
	setStr(&cfg.Mode, "BETSLIP_MODE")
	setStr(&cfg.LogLevel, "BETSLIP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
