// Package tiered composes an ordered list of storage tiers into a
// single storage.Storage: reads short-circuit at the first tier that
// has the key, writes fan out to every tier, and only the last
// (authoritative) tier answers prefix queries.
package tiered

import (
	"github.com/hashicorp/go-multierror"

	"github.com/corekv/corekv/internal/kverrors"
	"github.com/corekv/corekv/internal/kvlog"
	"github.com/corekv/corekv/internal/metrics"
	"github.com/corekv/corekv/lib/storage"
)

var log = kvlog.Get("tiered")

// Store composes tiers, ordered fastest-to-slowest. A typical
// configuration is a cache shard in front of a disk shard.
type Store struct {
	tiers []storage.Storage
}

// New composes tiers into a single Store. tiers must contain at least
// one entry; the last entry is treated as authoritative for Query.
func New(tiers ...storage.Storage) *Store {
	return &Store{tiers: tiers}
}

func (s *Store) Start() error {
	for i, t := range s.tiers {
		if err := t.Start(); err != nil {
			for _, done := range s.tiers[:i] {
				_ = done.Stop()
			}
			return err
		}
	}
	return nil
}

// Stop stops every tier, best-effort, collecting any errors rather than
// aborting partway through.
func (s *Store) Stop() error {
	var merr *multierror.Error
	for _, t := range s.tiers {
		if err := t.Stop(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

// Get checks tiers in order and returns on the first hit. A miss in an
// earlier tier is not an error; it simply falls through to the next
// tier.
func (s *Store) Get(key string) ([]byte, bool, error) {
	metrics.IncOp("tiered", "get")
	for _, t := range s.tiers {
		v, found, err := t.Get(key)
		if err != nil {
			return nil, false, err
		}
		if found {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// Set writes to every tier. A failure in one tier does not stop the
// write from reaching the others; the tiers already written are not
// rolled back, since the storage contract makes no cross-tier atomicity
// promise.
func (s *Store) Set(key string, value []byte) error {
	metrics.IncOp("tiered", "set")
	var merr *multierror.Error
	for _, t := range s.tiers {
		if err := t.Set(key, value); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if merr.ErrorOrNil() != nil {
		log.Warningf("partial write for key %q: %v", key, merr)
	}
	return merr.ErrorOrNil()
}

// Del deletes from every tier, same fan-out and best-effort semantics
// as Set.
func (s *Store) Del(key string) error {
	metrics.IncOp("tiered", "del")
	var merr *multierror.Error
	for _, t := range s.tiers {
		if err := t.Del(key); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

// Query answers from the last (authoritative) tier only. An earlier
// tier such as a bounded cache holds an arbitrary subset of keys and
// can't be trusted to answer completeness questions; the last tier is
// expected to hold the full data set.
func (s *Store) Query(prefix string) ([]string, error) {
	metrics.IncOp("tiered", "query")
	if len(s.tiers) == 0 {
		return nil, kverrors.RoutingFailure("tiered store has no tiers configured")
	}
	return s.tiers[len(s.tiers)-1].Query(prefix)
}
