package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// ContactSetting is the site_settings row holding the destination contact.
const ContactSetting = "whatsapp"

// SettingsStore reads and writes site-wide settings.
type SettingsStore struct {
	pool *pgxpool.Pool
}

var _ domain.ContactProvider = (*SettingsStore)(nil)

// NewSettingsStore creates a new SettingsStore backed by the given pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Get returns a setting's value or domain.ErrNotFound.
func (s *SettingsStore) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM site_settings WHERE name = $1`, name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("postgres: get setting %s: %w", name, err)
	}
	return value, nil
}

// Set upserts a setting.
func (s *SettingsStore) Set(ctx context.Context, name, value string) error {
	const query = `
		INSERT INTO site_settings (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			value      = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`
	if _, err := s.pool.Exec(ctx, query, name, value); err != nil {
		return fmt.Errorf("postgres: set setting %s: %w", name, err)
	}
	return nil
}

// Contact implements domain.ContactProvider from the ContactSetting row.
func (s *SettingsStore) Contact(ctx context.Context) (string, error) {
	return s.Get(ctx, ContactSetting)
}
