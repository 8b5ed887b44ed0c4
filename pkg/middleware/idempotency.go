package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotentReplayedHeader  = "Idempotent-Replayed"
	maxIdempotencySweepPeriod = time.Hour
)

// IdempotencyStore remembers the outcome of keyed write requests.
type IdempotencyStore interface {
	// Begin claims key for a new request. It returns the stored response
	// when key already completed, or inProgress when another request holds
	// the claim.
	Begin(key string) (cached *CachedResponse, inProgress bool)
	// Complete stores the response for key and ends the claim.
	Complete(key string, response *CachedResponse)
	// Abandon drops the claim without storing anything, so that the
	// request can be retried.
	Abandon(key string)
	Stop()
}

type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

type idempotencyEntry struct {
	response  *CachedResponse
	createdAt time.Time
}

func (e *idempotencyEntry) pending() bool {
	return e.response == nil
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries: make(map[string]*idempotencyEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go store.sweep(min(ttl, maxIdempotencySweepPeriod))

	return store
}

func (s *InMemoryIdempotencyStore) Begin(key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.entries[key]; ok && now.Sub(e.createdAt) <= s.ttl {
		if e.pending() {
			return nil, true
		}
		return e.response, false
	}

	s.entries[key] = &idempotencyEntry{createdAt: now}
	return nil, false
}

func (s *InMemoryIdempotencyStore) Complete(key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &idempotencyEntry{response: response, createdAt: time.Now()}
}

func (s *InMemoryIdempotencyStore) Abandon(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.pending() {
		delete(s.entries, key)
	}
}

func (s *InMemoryIdempotencyStore) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if time.Since(e.createdAt) > s.ttl {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response for a repeated write request
// carrying the same key. A repeat that arrives while the first request is
// still running is rejected with 409. Non-2xx outcomes are not stored.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = IdempotencyKeyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := idempotencyKey(r, headerName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			cached, inProgress := store.Begin(key)
			switch {
			case cached != nil:
				replay(w, cached)
				return
			case inProgress:
				httputil.WriteError(w, apperrors.RequestInProgress())
				return
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			completed := false
			defer func() {
				if !completed {
					store.Abandon(key)
				}
			}()

			next.ServeHTTP(capture, r)

			if capture.statusCode >= 200 && capture.statusCode < 300 {
				store.Complete(key, snapshot(w, capture))
				completed = true
			}
		})
	}
}

// idempotencyKey scopes the caller's key to the client, method and path, so
// one key cannot replay a response recorded for another client or endpoint.
func idempotencyKey(r *http.Request, headerName string) string {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
		return ""
	}
	key := r.Header.Get(headerName)
	if key == "" {
		return ""
	}
	return DefaultClientExtractor(r) + " " + r.Method + " " + r.URL.Path + " " + key
}

func snapshot(w http.ResponseWriter, capture *responseCapture) *CachedResponse {
	headers := w.Header().Clone()
	headers.Del(RequestIDHeader)
	return &CachedResponse{
		StatusCode: capture.statusCode,
		Headers:    headers,
		Body:       bytes.Clone(capture.body.Bytes()),
	}
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set(IdempotentReplayedHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
