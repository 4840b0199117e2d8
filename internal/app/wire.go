package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/betslip/internal/blob/s3"
	"github.com/alanyoungcy/betslip/internal/cache/redis"
	"github.com/alanyoungcy/betslip/internal/config"
	"github.com/alanyoungcy/betslip/internal/contact"
	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/message"
	"github.com/alanyoungcy/betslip/internal/notify"
	"github.com/alanyoungcy/betslip/internal/server/handler"
	"github.com/alanyoungcy/betslip/internal/store/file"
	"github.com/alanyoungcy/betslip/internal/store/memory"
	"github.com/alanyoungcy/betslip/internal/store/postgres"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	// Cart storage
	Slots domain.SlotStore
	// Pruner is set when the slot backend can drop stale carts itself.
	Pruner *postgres.SlotStore

	// Send flow
	Contacts  domain.ContactProvider
	Receipts  []domain.ReceiptWriter
	Formatter *message.Formatter

	// Optional infrastructure
	ReceiptLister domain.ReceiptLister
	RateLimiter   domain.RateLimiter
	SignalBus     domain.SignalBus

	// Notifications
	Alerts *notify.Notifier

	// Checks feeds the health endpoint.
	Checks map[string]handler.Check
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Checks: make(map[string]handler.Check)}

	// --- PostgreSQL ---
	var pgClient *postgres.Client
	if cfg.NeedsPostgres() {
		var err error
		pgClient, err = postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)
		deps.Checks["postgres"] = pgClient.Ping

		if cfg.Postgres.RunMigrations {
			applied, err := pgClient.RunMigrations(ctx)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
			if len(applied) > 0 {
				logger.InfoContext(ctx, "migrations applied", slog.Any("files", applied))
			}
		}
	}

	// --- Redis ---
	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		var err error
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Checks["redis"] = redisClient.Ping
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage ---
	var s3Client *s3blob.Client
	if cfg.NeedsS3() {
		var err error
		s3Client, err = s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Checks["s3"] = s3Client.Health
	}

	// --- Cart slots ---
	switch cfg.Storage.Backend {
	case "file":
		fs, err := file.NewSlotStore(cfg.Storage.Dir)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: file storage: %w", err)
		}
		deps.Slots = fs
	case "redis":
		deps.Slots = redis.NewSlotStore(redisClient, cfg.Storage.TTL.Duration)
	case "postgres":
		ps := postgres.NewSlotStore(pgClient.Pool())
		deps.Slots = ps
		deps.Pruner = ps
	case "s3":
		deps.Slots = s3blob.NewSlotStore(s3Client)
	default:
		deps.Slots = memory.NewSlotStore()
	}

	// --- Contact ---
	var contacts domain.ContactProvider = contact.Static(cfg.Contact.Number)
	if cfg.Contact.Source == "postgres" {
		contacts = contact.Chain{
			postgres.NewSettingsStore(pgClient.Pool()),
			contact.Static(cfg.Contact.Number),
		}
		if redisClient != nil && cfg.Contact.CacheTTL.Duration > 0 {
			contacts = redis.NewContactCache(redisClient, contacts, cfg.Contact.CacheTTL.Duration, logger)
		}
	}
	deps.Contacts = contacts

	// --- Receipts ---
	if cfg.Receipts.Postgres {
		rs := postgres.NewReceiptStore(pgClient.Pool())
		deps.Receipts = append(deps.Receipts, rs)
		deps.ReceiptLister = rs
	}
	if cfg.Receipts.S3 {
		deps.Receipts = append(deps.Receipts, s3blob.NewReceiptArchive(s3Client, cfg.Receipts.Prefix))
	}
	if cfg.Receipts.Stream != "" {
		deps.Receipts = append(deps.Receipts, redis.NewReceiptStream(redisClient, cfg.Receipts.Stream))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Alerts = notify.NewNotifier(senders, cfg.Notify.Kinds, logger)
	closers = append(closers, deps.Alerts.Wait)

	deps.Formatter = message.NewFormatter(cfg.Message.Brand, notify.NewLog(logger))

	return deps, cleanup, nil
}
