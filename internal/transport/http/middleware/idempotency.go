package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"zenora/internal/transport/http/api"
)

const idempotencyKeyHeader = "Idempotency-Key"

// Idempotency replays the stored response for repeated POSTs carrying the
// same Idempotency-Key. Entries are per user, kept in memory for the TTL;
// requests without the header pass through untouched.
type Idempotency struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*idemEntry
}

type idemEntry struct {
	done        bool
	status      int
	contentType string
	body        []byte
	storedAt    time.Time
}

func NewIdempotency(ttl time.Duration) *Idempotency {
	return &Idempotency{ttl: ttl, entries: map[string]*idemEntry{}}
}

// begin claims the key. It returns the stored entry when a completed response
// exists, and claimed=false when another request holds the key in flight.
func (i *Idempotency) begin(key string, now time.Time) (entry *idemEntry, claimed bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.entries) > 10000 {
		for k, e := range i.entries {
			if now.Sub(e.storedAt) > i.ttl {
				delete(i.entries, k)
			}
		}
	}

	if e, ok := i.entries[key]; ok && now.Sub(e.storedAt) <= i.ttl {
		if e.done {
			return e, false
		}
		return nil, false
	}
	i.entries[key] = &idemEntry{storedAt: now}
	return nil, true
}

func (i *Idempotency) finish(key string, status int, contentType string, body []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	// 5xx responses are not replayed; the client may retry the operation.
	if status >= http.StatusInternalServerError {
		delete(i.entries, key)
		return
	}
	i.entries[key] = &idemEntry{
		done:        true,
		status:      status,
		contentType: contentType,
		body:        body,
		storedAt:    time.Now(),
	}
}

func (i *Idempotency) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotencyKeyHeader)
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		scope := key + "\x00" + r.URL.Path
		if user, ok := GetUser(r.Context()); ok {
			scope = user.UserID + "\x00" + scope
		}

		entry, claimed := i.begin(scope, time.Now())
		if entry != nil {
			if entry.contentType != "" {
				w.Header().Set("Content-Type", entry.contentType)
			}
			w.WriteHeader(entry.status)
			w.Write(entry.body)
			return
		}
		if !claimed {
			api.Fail(w, r, http.StatusConflict, "in_progress", "identical request is still being processed")
			return
		}

		rec := &bufferingRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		i.finish(scope, rec.status, rec.Header().Get("Content-Type"), rec.buf.Bytes())
	})
}

// bufferingRecorder tees the response body so it can be replayed later.
type bufferingRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *bufferingRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *bufferingRecorder) Write(p []byte) (int, error) {
	r.buf.Write(p)
	return r.ResponseWriter.Write(p)
}
