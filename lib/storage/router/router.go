// Package router implements shard-per-core partitioning: every key
// hashes to exactly one shard, and each shard is owned by a
// single worker goroutine that drains an in-order request queue. No
// shard's state is ever touched from more than one goroutine, so the
// shards underneath need no locks of their own.
package router

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcegraph/conc"

	"github.com/corekv/corekv/internal/kverrors"
	"github.com/corekv/corekv/internal/kvlog"
	"github.com/corekv/corekv/internal/metrics"
	"github.com/corekv/corekv/lib/storage"
)

var log = kvlog.Get("router")

type opKind int

const (
	opGet opKind = iota
	opSet
	opDel
	opQuery
)

type request struct {
	op     opKind
	key    string
	value  []byte
	prefix string
	respCh chan response
}

type response struct {
	value []byte
	found bool
	keys  []string
	err   error
}

// worker pins one shard to one goroutine. reqCh is the in-order queue
// that gives the shard the "one thread per shard" semantics from the
// concurrency model without an OS thread per shard.
type worker struct {
	id    int
	store storage.Storage
	reqCh chan request
}

func (w *worker) run() {
	for req := range w.reqCh {
		switch req.op {
		case opGet:
			v, found, err := w.store.Get(req.key)
			req.respCh <- response{value: v, found: found, err: err}
		case opSet:
			err := w.store.Set(req.key, req.value)
			req.respCh <- response{err: err}
		case opDel:
			err := w.store.Del(req.key)
			req.respCh <- response{err: err}
		case opQuery:
			keys, err := w.store.Query(req.prefix)
			req.respCh <- response{keys: keys, err: err}
		}
	}
}

// Router routes each key to its owning shard by a stable hash and
// implements storage.Storage over the whole partitioned set. It is
// itself safe to call from any number of goroutines: the only shared
// state is the request channels, which are safe for concurrent sends.
type Router struct {
	workers  []*worker
	registry *xsync.MapOf[int, *worker]
	runWG    sync.WaitGroup
}

// New builds a Router over shards, one worker per shard, each with a
// queue of depth queueDepth.
func New(shards []storage.Storage, queueDepth int) *Router {
	if queueDepth < 1 {
		queueDepth = 1
	}
	r := &Router{
		registry: xsync.NewMapOf[int, *worker](),
	}
	for i, s := range shards {
		w := &worker{id: i, store: s, reqCh: make(chan request, queueDepth)}
		r.workers = append(r.workers, w)
		r.registry.Store(i, w)
	}
	return r
}

// Start starts every shard and its worker goroutine.
func (r *Router) Start() error {
	started := make([]*worker, 0, len(r.workers))
	for _, w := range r.workers {
		if err := w.store.Start(); err != nil {
			for _, done := range started {
				_ = done.store.Stop()
			}
			return err
		}
		started = append(started, w)
		r.runWG.Add(1)
		go func(w *worker) {
			defer r.runWG.Done()
			w.run()
		}(w)
	}
	log.Infof("router started with %d shards", len(r.workers))
	return nil
}

// Stop closes every worker's queue and waits for its run loop to drain
// whatever was still buffered before stopping the underlying shard.
// Stopping a shard while its worker goroutine might still be mid-Get,
// mid-Set or mid-Del on it would race the shard's own teardown (a disk
// shard closing and truncating its file, for instance) against that
// last in-flight call, so every run loop must have returned first.
// Errors are collected rather than failing fast so that one
// misbehaving shard doesn't prevent the rest from shutting down
// cleanly.
func (r *Router) Stop() error {
	for _, w := range r.workers {
		close(w.reqCh)
	}
	r.runWG.Wait()

	var merr *multierror.Error
	for _, w := range r.workers {
		if err := w.store.Stop(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

// shardFor computes the owning shard index for key using a stable hash,
// per the "same key always the same shard" partitioning invariant.
func (r *Router) shardFor(key string) int {
	if len(r.workers) == 0 {
		return 0
	}
	h := xxhash.Sum64String(key)
	return int(h % uint64(len(r.workers)))
}

func (r *Router) Get(key string) ([]byte, bool, error) {
	metrics.IncOp("router", "get")
	if len(r.workers) == 0 {
		return nil, false, kverrors.RoutingFailure("no shards configured")
	}
	w := r.workers[r.shardFor(key)]
	respCh := make(chan response, 1)
	w.reqCh <- request{op: opGet, key: key, respCh: respCh}
	resp := <-respCh
	return resp.value, resp.found, resp.err
}

func (r *Router) Set(key string, value []byte) error {
	metrics.IncOp("router", "set")
	if len(r.workers) == 0 {
		return kverrors.RoutingFailure("no shards configured")
	}
	w := r.workers[r.shardFor(key)]
	respCh := make(chan response, 1)
	w.reqCh <- request{op: opSet, key: key, value: value, respCh: respCh}
	resp := <-respCh
	return resp.err
}

func (r *Router) Del(key string) error {
	metrics.IncOp("router", "del")
	if len(r.workers) == 0 {
		return kverrors.RoutingFailure("no shards configured")
	}
	w := r.workers[r.shardFor(key)]
	respCh := make(chan response, 1)
	w.reqCh <- request{op: opDel, key: key, respCh: respCh}
	resp := <-respCh
	return resp.err
}

// Query fans the prefix scan out to every shard concurrently and merges
// the results. Each shard only ever knows about its own keys, so a
// query is by nature a map-reduce over all of them.
func (r *Router) Query(prefix string) ([]string, error) {
	metrics.IncOp("router", "query")

	results := make([][]string, len(r.workers))
	errs := make([]error, len(r.workers))

	var wg conc.WaitGroup
	for i, w := range r.workers {
		i, w := i, w
		wg.Go(func() {
			respCh := make(chan response, 1)
			w.reqCh <- request{op: opQuery, prefix: prefix, respCh: respCh}
			resp := <-respCh
			results[i] = resp.keys
			errs[i] = resp.err
		})
	}
	wg.Wait()

	var merr *multierror.Error
	out := make([]string, 0)
	for i := range results {
		if errs[i] != nil {
			merr = multierror.Append(merr, errs[i])
			continue
		}
		out = append(out, results[i]...)
	}
	return out, merr.ErrorOrNil()
}

// ShardCount reports how many shards the router partitions across.
func (r *Router) ShardCount() int {
	return r.registry.Size()
}
