// Package http implements the HTTP/JSON adaptor: a POST-only
// JSON API over the storage contract, plus ambient /healthz, /metrics
// and /v1/info endpoints. Request bodies are parsed with a tolerant
// "name" : "value" scan rather than a strict JSON decoder, so extra
// fields in a client's body are ignored. The scan matches the field
// only when it is written with one space on each side of the colon.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/corekv/corekv/internal/kverrors"
	"github.com/corekv/corekv/internal/kvlog"
	"github.com/corekv/corekv/internal/metrics"
	"github.com/corekv/corekv/lib/storage"
)

var log = kvlog.Get("http")

// Server adapts an http.Server over a storage.Storage instance.
type Server struct {
	addr       string
	store      storage.Storage
	shardCount int
	httpServer *http.Server
}

// New builds a Server listening on addr, serving store. shardCount is
// reported by /v1/info only; it has no effect on routing.
func New(addr string, store storage.Storage, shardCount int) *Server {
	s := &Server{addr: addr, store: store, shardCount: shardCount}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/get", loggingMiddleware(s.handleGet))
	mux.HandleFunc("POST /v1/set", loggingMiddleware(s.handleSet))
	mux.HandleFunc("POST /v1/delete", loggingMiddleware(s.handleDelete))
	mux.HandleFunc("POST /v1/query", loggingMiddleware(s.handleQuery))
	mux.HandleFunc("GET /v1/info", s.handleInfo)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown is called on
// another goroutine, then returns nil (matching net/http.Server's
// convention that a clean shutdown is not an error).
func (s *Server) ListenAndServe() error {
	log.Infof("http server listening on %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}
	key, ok := extractJSONValue(body, "key")
	if !ok {
		writeMalformed(w, "missing key")
		return
	}

	value, found, err := s.store.Get(key)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, fmt.Sprintf(`{ "key" : %s, "value" : %s }`, quoteJSON(key), quoteJSON(string(value))))
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}
	key, ok := extractJSONValue(body, "key")
	if !ok {
		writeMalformed(w, "missing key")
		return
	}
	value, _ := extractJSONValue(body, "value")

	if err := s.store.Set(key, []byte(value)); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}
	key, ok := extractJSONValue(body, "key")
	if !ok {
		writeMalformed(w, "missing key")
		return
	}

	// The storage contract's delete is idempotent: an absent key is not
	// an error, so this always answers 200.
	if err := s.store.Del(key); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}
	prefix, _ := extractJSONValue(body, "prefix")

	keys, err := s.store.Query(prefix)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("[ ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf(`{ "key" : %s }`, quoteJSON(k)))
	}
	b.WriteString(" ]")

	writeJSON(w, http.StatusOK, b.String())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fmt.Sprintf(`{ "shards" : %d }`, s.shardCount))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

// writeMalformed rejects a request body the tolerant scan couldn't
// extract a required field from. Building the error through
// kverrors.Malformed, rather than calling http.Error directly, keeps
// every malformed-request response tagged with the same sentinel kind
// callers elsewhere test for with kverrors.IsMalformed.
func writeMalformed(w http.ResponseWriter, msg string) {
	err := kverrors.Malformed(msg)
	log.Debugf("malformed request: %v", err)
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// writeStoreError maps a kverrors kind to the HTTP status the error
// handling design assigns it. Anything not-found has already been
// handled by callers via the found bool.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case kverrors.IsRoutingFailure(err):
		// The shard hash is total, so every key resolves to exactly one
		// shard; reaching here means that invariant broke. Per the error
		// handling design this is a programming bug, not a request the
		// caller can retry or fix, so it aborts the process rather than
		// answering with a status code.
		panic(err)
	case kverrors.IsMalformed(err):
		writeMalformed(w, err.Error())
	case kverrors.IsIOFailure(err):
		log.Errorf("io failure: %v", err)
		http.Error(w, "storage io failure", http.StatusInternalServerError)
	default:
		log.Errorf("unexpected storage error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func readBody(r *http.Request) (string, error) {
	defer func() { _ = r.Body.Close() }()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// extractJSONValue performs the tolerant `"key" : "value"` scan: it
// looks for the literal pattern `"name" : "` and reads up to the next
// double quote, without parsing the surrounding document as JSON. It
// deliberately does not handle escaped quotes inside the value;
// well-formed request bodies never need them.
func extractJSONValue(data, name string) (string, bool) {
	pattern := fmt.Sprintf(`"%s" : "`, name)
	start := strings.Index(data, pattern)
	if start < 0 {
		return "", false
	}
	start += len(pattern)
	end := strings.Index(data[start:], `"`)
	if end < 0 {
		return "", false
	}
	return data[start : start+end], true
}

// quoteJSON escapes a string for embedding as a JSON string literal.
func quoteJSON(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// loggingMiddleware logs method, path and duration once the handler
// returns, at debug level.
func loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debugf("%s %s took %s", r.Method, r.URL.Path, time.Since(start))
	}
}
