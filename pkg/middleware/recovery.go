package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
)

// Recovery turns a handler panic into a 500. The panic value and stack are
// logged; the caller only sees the generic internal error body.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				log.WithContext(r.Context()).Error("Panic recovered",
					"error", p,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				httputil.WriteError(w, apperrors.Internal("panic", nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
