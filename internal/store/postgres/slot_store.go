package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// SlotStore implements domain.SlotStore on the cart_slots table.
type SlotStore struct {
	pool *pgxpool.Pool
}

var _ domain.SlotStore = (*SlotStore)(nil)

// NewSlotStore creates a new SlotStore backed by the given connection pool.
func NewSlotStore(pool *pgxpool.Pool) *SlotStore {
	return &SlotStore{pool: pool}
}

// Get returns the slot's payload or domain.ErrNotFound.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := s.pool.QueryRow(ctx, `SELECT payload FROM cart_slots WHERE key = $1`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get slot %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Put upserts the slot's payload.
func (s *SlotStore) Put(ctx context.Context, key string, data []byte) error {
	const query = `
		INSERT INTO cart_slots (key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			payload    = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.pool.Exec(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("postgres: put slot %s: %w", key, err)
	}
	return nil
}

// Delete removes the slot. Deleting a missing slot is not an error.
func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_slots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres: delete slot %s: %w", key, err)
	}
	return nil
}

// Prune deletes slots not written since before and returns how many went.
func (s *SlotStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cart_slots WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune slots: %w", err)
	}
	return tag.RowsAffected(), nil
}
