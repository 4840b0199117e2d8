package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// SlotStore implements domain.SlotStore with one string key per slot.
//
// Key schema:
//
//	slot:{key} - encoded cart
type SlotStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.SlotStore = (*SlotStore)(nil)

// NewSlotStore creates a SlotStore. A positive ttl expires carts that have
// not been written for that long; zero keeps them forever.
func NewSlotStore(c *Client, ttl time.Duration) *SlotStore {
	return &SlotStore{rdb: c.Underlying(), ttl: ttl}
}

func slotKey(key string) string { return "slot:" + key }

// Get returns the slot's bytes or domain.ErrNotFound.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, slotKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get slot %s: %w", key, err)
	}
	return data, nil
}

// Put overwrites the slot and refreshes its expiry.
func (s *SlotStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.rdb.Set(ctx, slotKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: put slot %s: %w", key, err)
	}
	return nil
}

// Delete removes the slot. Deleting a missing slot is not an error.
func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, slotKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: delete slot %s: %w", key, err)
	}
	return nil
}
