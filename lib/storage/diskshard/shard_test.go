package diskshard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestShard(t *testing.T) (*Shard, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shard.log")
	s := New(path)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s, path
}

func TestReadYourWrite(t *testing.T) {
	s, _ := newTestShard(t)
	require.NoError(t, s.Set("a", []byte("hello")))

	v, found, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("hello"), v)
}

func TestOverwrite(t *testing.T) {
	s, _ := newTestShard(t)
	require.NoError(t, s.Set("a", []byte("v1")))
	require.NoError(t, s.Set("a", []byte("v2-longer-value")))

	v, found, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v2-longer-value"), v)
}

func TestDeleteSemantics(t *testing.T) {
	s, _ := newTestShard(t)
	require.NoError(t, s.Set("a", []byte("v1")))
	require.NoError(t, s.Del("a"))

	_, found, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Del("missing")) // idempotent
}

func TestQueryPrefix(t *testing.T) {
	s, _ := newTestShard(t)
	require.NoError(t, s.Set("user:1", []byte("a")))
	require.NoError(t, s.Set("user:2", []byte("b")))
	require.NoError(t, s.Set("order:1", []byte("c")))

	keys, err := s.Query("user:")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"user:1", "user:2"}, keys)
}

// TestCrashRecovery simulates a restart: a fresh Shard opened against
// the same log file must reconstruct the same live keys the previous
// instance had, using only the on-disk log.
func TestCrashRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shard.log")

	s1 := New(path)
	require.NoError(t, s1.Start())
	require.NoError(t, s1.Set("a", []byte("1")))
	require.NoError(t, s1.Set("b", []byte("2")))
	require.NoError(t, s1.Del("a"))
	require.NoError(t, s1.Set("c", []byte("3")))
	require.NoError(t, s1.Stop())

	s2 := New(path)
	require.NoError(t, s2.Start())
	defer func() { _ = s2.Stop() }()

	_, found, _ := s2.Get("a")
	require.False(t, found)

	v, found, _ := s2.Get("b")
	require.True(t, found)
	require.Equal(t, []byte("2"), v)

	v, found, _ = s2.Get("c")
	require.True(t, found)
	require.Equal(t, []byte("3"), v)
}

func TestManySmallRecordsSpanMultipleBlocks(t *testing.T) {
	s, _ := newTestShard(t)
	for i := 0; i < 500; i++ {
		key := "k" + string(rune('a'+i%26)) + string(rune('0'+i%10))
		require.NoError(t, s.Set(key, []byte("value-payload")))
	}
	keys, err := s.Query("")
	require.NoError(t, err)
	require.NotEmpty(t, keys)
}
