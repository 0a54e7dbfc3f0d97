package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gopmf/pkg/fingerprint"
)

func TestStoreThenLookupHits(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(dbPath)
	require.NoError(t, err)
	defer c.Close()

	digest := fingerprint.OfBytes([]byte("hello"))
	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Store("/a/GX010001.MP4", digest, modTime, 1024))

	got, ok := c.Lookup("/a/GX010001.MP4", modTime, 1024)
	require.True(t, ok)
	require.Equal(t, digest, got)
}

func TestLookupMissesOnSizeChange(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(dbPath)
	require.NoError(t, err)
	defer c.Close()

	digest := fingerprint.OfBytes([]byte("hello"))
	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Store("/a/GX010001.MP4", digest, modTime, 1024))

	_, ok := c.Lookup("/a/GX010001.MP4", modTime, 2048)
	require.False(t, ok)
}

func TestLookupMissesOnUnknownPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(dbPath)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Lookup("/does/not/exist.MP4", time.Now(), 0)
	require.False(t, ok)
}
