package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/betslip/internal/domain"
)

const contactKey = "contact:destination"

// ContactCache is a read-through cache in front of a slower contact source.
// Concurrent misses share one lookup. Redis failures fall back to the source.
type ContactCache struct {
	rdb    *redis.Client
	source domain.ContactProvider
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

var _ domain.ContactProvider = (*ContactCache)(nil)

// NewContactCache wraps source. Cached values live for ttl.
func NewContactCache(c *Client, source domain.ContactProvider, ttl time.Duration, logger *slog.Logger) *ContactCache {
	return &ContactCache{
		rdb:    c.Underlying(),
		source: source,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "contact_cache")),
	}
}

// Contact returns the cached identifier or asks the source.
func (cc *ContactCache) Contact(ctx context.Context) (string, error) {
	id, err := cc.rdb.Get(ctx, contactKey).Result()
	switch {
	case err == nil:
		return id, nil
	case !errors.Is(err, redis.Nil):
		cc.logger.WarnContext(ctx, "contact cache read failed", slog.String("error", err.Error()))
	}

	v, err, _ := cc.group.Do(contactKey, func() (any, error) {
		id, err := cc.source.Contact(ctx)
		if err != nil {
			return "", err
		}
		// An empty identifier is not cached so a fix takes effect at once.
		if id != "" {
			if err := cc.rdb.Set(ctx, contactKey, id, cc.ttl).Err(); err != nil {
				cc.logger.WarnContext(ctx, "contact cache write failed", slog.String("error", err.Error()))
			}
		}
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("redis: contact lookup: %w", err)
	}
	return v.(string), nil
}

// Invalidate drops the cached identifier.
func (cc *ContactCache) Invalidate(ctx context.Context) error {
	if err := cc.rdb.Del(ctx, contactKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate contact: %w", err)
	}
	return nil
}
