package cacheshard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadYourWrite(t *testing.T) {
	s := New(10)
	require.NoError(t, s.Set("a", []byte("1")))
	v, found, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)
}

func TestOverwrite(t *testing.T) {
	s := New(10)
	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Set("a", []byte("2")))
	v, found, _ := s.Get("a")
	require.True(t, found)
	require.Equal(t, []byte("2"), v)
}

func TestDeleteSemantics(t *testing.T) {
	s := New(10)
	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Del("a"))
	_, found, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, found)

	// deleting an absent key is not an error
	require.NoError(t, s.Del("missing"))
}

func TestQueryPrefix(t *testing.T) {
	s := New(10)
	require.NoError(t, s.Set("2222", []byte("bbbb")))
	require.NoError(t, s.Set("2233", []byte("cccc")))
	require.NoError(t, s.Set("9999", []byte("zzzz")))

	keys, err := s.Query("22")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"2222", "2233"}, keys)
}

func TestCacheBound(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Set("b", []byte("2")))
	require.NoError(t, s.Set("c", []byte("3")))

	require.LessOrEqual(t, s.Len(), 2)

	// "a" was the least recently used and should have been evicted
	_, found, _ := s.Get("a")
	require.False(t, found)

	for _, k := range []string{"b", "c"} {
		_, found, _ := s.Get(k)
		require.True(t, found, "expected %q to survive eviction", k)
	}
}

func TestNoPromotionOnRead(t *testing.T) {
	// The cache shard only promotes on Set, never on Get. Reading "a"
	// repeatedly must not save it from eviction.
	s := New(2)
	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Set("b", []byte("2")))

	for i := 0; i < 5; i++ {
		_, _, _ = s.Get("a")
	}

	require.NoError(t, s.Set("c", []byte("3")))

	_, found, _ := s.Get("a")
	require.False(t, found, "reads must not promote a key in the LRU order")
}

func TestOverwriteMovesToBack(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Set("b", []byte("2")))
	require.NoError(t, s.Set("a", []byte("11"))) // overwrite promotes "a"
	require.NoError(t, s.Set("c", []byte("3")))  // should evict "b", not "a"

	_, found, _ := s.Get("b")
	require.False(t, found)
	v, found, _ := s.Get("a")
	require.True(t, found)
	require.Equal(t, []byte("11"), v)
}
