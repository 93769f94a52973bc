// Package cacheshard implements the per-core bounded LRU cache shard:
// a plain map plus a recency list, both owned exclusively by
// the worker the router pins this shard to. No locking is needed because
// no other goroutine ever touches a Shard's fields directly - the
// router serializes access through the worker's request channel.
package cacheshard

import (
	"container/list"
	"strings"

	"github.com/corekv/corekv/internal/kvlog"
	"github.com/corekv/corekv/internal/metrics"
)

var log = kvlog.Get("cacheshard")

// record is the LRU list payload: a key/value pair. Storing the key
// alongside the value lets eviction remove the map entry in O(1) once it
// pops the front of the list.
type record struct {
	key   string
	value []byte
}

// Shard is a single cache partition bounded to capacity records. It
// implements storage.Storage. Deliberately, Get does not touch LRU
// order - only Set promotes a key to most-recently-used, a genuine
// LRU-vs-LFU hybrid rather than a bug (see DESIGN.md).
type Shard struct {
	capacity int
	data     map[string]*list.Element
	order    *list.List // front = least recently used, back = most recent
}

// New creates a cache shard with room for capacity records. capacity
// must be >= 1.
func New(capacity int) *Shard {
	if capacity < 1 {
		capacity = 1
	}
	return &Shard{
		capacity: capacity,
		data:     make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Start is a no-op: the cache shard owns no external resources.
func (s *Shard) Start() error { return nil }

// Stop is a no-op for the same reason.
func (s *Shard) Stop() error { return nil }

func (s *Shard) Get(key string) ([]byte, bool, error) {
	el, ok := s.data[key]
	if !ok {
		metrics.ObserveCache(false)
		return nil, false, nil
	}
	metrics.ObserveCache(true)
	rec := el.Value.(*record)
	out := make([]byte, len(rec.value))
	copy(out, rec.value)
	return out, true, nil
}

func (s *Shard) Set(key string, value []byte) error {
	valCopy := make([]byte, len(value))
	copy(valCopy, value)

	if el, ok := s.data[key]; ok {
		el.Value.(*record).value = valCopy
		s.order.MoveToBack(el)
		return nil
	}

	if len(s.data) >= s.capacity {
		front := s.order.Front()
		if front != nil {
			evicted := front.Value.(*record)
			s.order.Remove(front)
			delete(s.data, evicted.key)
			log.Debugf("evicted key %q (capacity %d reached)", evicted.key, s.capacity)
		}
	}

	el := s.order.PushBack(&record{key: key, value: valCopy})
	s.data[key] = el
	return nil
}

func (s *Shard) Del(key string) error {
	if el, ok := s.data[key]; ok {
		s.order.Remove(el)
		delete(s.data, key)
	}
	return nil
}

func (s *Shard) Query(prefix string) ([]string, error) {
	out := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Len reports the number of records currently cached. Used by tests to
// assert the cache-bound property.
func (s *Shard) Len() int {
	return len(s.data)
}
