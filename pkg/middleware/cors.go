package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORS allows the configured origins to call the API from a browser.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{
			"Content-Type", "Authorization", IdempotencyKeyHeader, RequestIDHeader, ClientIDHeader,
		}),
		handlers.ExposedHeaders([]string{RequestIDHeader, IdempotentReplayedHeader, "Retry-After"}),
	)
}
