// Package file implements domain.SlotStore as one JSON file per slot inside a
// directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// SlotStore writes each slot to <dir>/<escaped key>.json.
type SlotStore struct {
	dir string
}

// NewSlotStore creates dir if needed and returns a SlotStore rooted there.
func NewSlotStore(dir string) (*SlotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: create slot dir %s: %w", dir, err)
	}
	return &SlotStore{dir: dir}, nil
}

// path maps a key to a file name. Keys contain ':' and may contain '/', so
// they are path-escaped.
func (s *SlotStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

// Get reads the slot file or returns domain.ErrNotFound.
func (s *SlotStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("file: read slot %s: %w", key, err)
	}
	return data, nil
}

// Put writes to a temporary file and renames it over the slot so readers
// never see a partial cart.
func (s *SlotStore) Put(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("file: write slot %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file: write slot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: write slot %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("file: write slot %s: %w", key, err)
	}
	return nil
}

// Delete removes the slot file. A missing file is not an error.
func (s *SlotStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file: delete slot %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SlotStore = (*SlotStore)(nil)
