package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betslip/internal/domain"
)

func TestSlotStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "carts")
	s, err := NewSlotStore(dir)
	require.NoError(t, err)

	key := "betting-cart:2b1f/../x"
	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Put(ctx, key, []byte(`[]`)))
	require.NoError(t, s.Put(ctx, key, []byte(`{"items":[],"combinations":[]}`)))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[],"combinations":[]}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "keys never escape the directory and temp files are cleaned up")
	assert.Equal(t, "betting-cart:2b1f%2F..%2Fx.json", entries[0].Name())

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
