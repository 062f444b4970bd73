package httpapi

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORSMiddleware allows browser clients served from allowedOrigins. Each entry is
// a full origin (scheme + host, no trailing slash). Preflights are answered here and
// never reach the auth middleware.
func NewCORSMiddleware(allowedOrigins []string, authHeader string) func(http.Handler) http.Handler {
	headers := []string{"Content-Type", IdempotencyKeyHeader, DebugSubjectHeader}
	if authHeader != "" {
		headers = append(headers, authHeader)
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: headers,
	})
	return c.Handler
}
