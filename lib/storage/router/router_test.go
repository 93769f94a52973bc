package router

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corekv/corekv/lib/storage"
	"github.com/corekv/corekv/lib/storage/cacheshard"
)

func newTestRouter(t *testing.T, n int) *Router {
	t.Helper()
	shards := make([]storage.Storage, n)
	for i := range shards {
		shards[i] = cacheshard.New(1024)
	}
	r := New(shards, 16)
	require.NoError(t, r.Start())
	t.Cleanup(func() { _ = r.Stop() })
	return r
}

func TestRoutingIsStable(t *testing.T) {
	r := newTestRouter(t, 4)
	first := r.shardFor("some-key")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, r.shardFor("some-key"))
	}
}

func TestReadYourWriteAcrossShards(t *testing.T) {
	r := newTestRouter(t, 4)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i)
		require.NoError(t, r.Set(key, []byte(fmt.Sprintf("value-%d", i))))
	}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i)
		v, found, err := r.Get(key)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, fmt.Sprintf("value-%d", i), string(v))
	}
}

func TestDeleteRoutesToOwningShard(t *testing.T) {
	r := newTestRouter(t, 4)
	require.NoError(t, r.Set("a", []byte("1")))
	require.NoError(t, r.Del("a"))
	_, found, err := r.Get("a")
	require.NoError(t, err)
	require.False(t, found)
}

func TestQueryFansOutAcrossAllShards(t *testing.T) {
	r := newTestRouter(t, 4)
	keys := []string{"user:1", "user:2", "user:3", "user:4", "user:5", "user:6"}
	for _, k := range keys {
		require.NoError(t, r.Set(k, []byte("x")))
	}
	got, err := r.Query("user:")
	require.NoError(t, err)
	require.ElementsMatch(t, keys, got)
}

func TestShardCount(t *testing.T) {
	r := newTestRouter(t, 6)
	require.Equal(t, 6, r.ShardCount())
}
