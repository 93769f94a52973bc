// Package metrics wires operation counts, cache hit/miss counts and
// disk I/O latency into github.com/VictoriaMetrics/metrics, exposed by
// the HTTP adaptor's /metrics endpoint.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// IncOp increments the operation counter for a given tier ("cache",
// "disk", "router", "tiered") and operation ("get", "set", "del",
// "query").
func IncOp(tier, op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`corekv_ops_total{tier=%q,op=%q}`, tier, op)).Inc()
}

// ObserveDiskLatency records how long a disk shard I/O operation took.
func ObserveDiskLatency(op string, d time.Duration) {
	metrics.GetOrCreateHistogram(fmt.Sprintf(`corekv_disk_seconds{op=%q}`, op)).Update(d.Seconds())
}

// ObserveCache records a cache shard hit or miss.
func ObserveCache(hit bool) {
	if hit {
		metrics.GetOrCreateCounter(`corekv_cache_hits_total`).Inc()
	} else {
		metrics.GetOrCreateCounter(`corekv_cache_misses_total`).Inc()
	}
}

// WritePrometheus renders every registered metric in Prometheus text
// exposition format, used by the HTTP adaptor's /metrics handler.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
