package tiered

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corekv/corekv/lib/storage/cacheshard"
	"github.com/corekv/corekv/lib/storage/diskshard"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	cache := cacheshard.New(2)
	disk := diskshard.New(filepath.Join(dir, "shard.log"))
	s := New(cache, disk)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestReadYourWrite(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("a", []byte("1")))
	v, found, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)
}

// TestSurvivesCacheEviction verifies the point of tiering: once the
// cache tier evicts a key, the disk tier still answers it.
func TestSurvivesCacheEviction(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Set("b", []byte("2")))
	require.NoError(t, s.Set("c", []byte("3"))) // evicts "a" from the 2-entry cache tier

	v, found, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, found, "disk tier must still have the evicted key")
	require.Equal(t, []byte("1"), v)
}

func TestDeleteRemovesFromEveryTier(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Del("a"))
	_, found, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, found)
}

// TestQueryIsAuthoritativeFromLastTier ensures a key evicted from the
// cache tier is still visible to prefix queries via the disk tier.
func TestQueryIsAuthoritativeFromLastTier(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("user:1", []byte("a")))
	require.NoError(t, s.Set("user:2", []byte("b")))
	require.NoError(t, s.Set("user:3", []byte("c"))) // may evict user:1 from cache

	keys, err := s.Query("user:")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"user:1", "user:2", "user:3"}, keys)
}
