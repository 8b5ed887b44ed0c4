package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
)

// bufferedResponse holds the handler's response until it is known to have
// finished inside the deadline.
type bufferedResponse struct {
	header http.Header

	mu      sync.Mutex
	body    bytes.Buffer
	status  int
	expired bool
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.expired || b.status != 0 {
		return
	}
	b.status = code
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.expired {
		return 0, http.ErrHandlerTimeout
	}
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expired = true
}

func (b *bufferedResponse) flushTo(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst := w.Header()
	for k, vv := range b.header {
		dst[k] = vv
	}
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(b.body.Bytes())
}

// RequestTimeout bounds every request by timeout. Handlers see the deadline
// through r.Context(); a handler that has not returned by then is answered
// with a 504 and its late output is discarded. A panic in the handler is
// re-raised on the serving goroutine so Recovery still sees it.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			buf := &bufferedResponse{header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(buf, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				buf.flushTo(w)
			case <-ctx.Done():
				buf.expire()
				httputil.WriteError(w, apperrors.Timeout("Request timed out"))
			}
		})
	}
}
