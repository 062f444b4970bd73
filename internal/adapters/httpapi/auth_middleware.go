package httpapi

import (
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

// DebugSubjectHeader lets dev mode act as any user.
const DebugSubjectHeader = "X-Debug-Subject"

// NewHeaderAuthMiddleware trusts the identity asserted by an upstream proxy in header.
//
// The proxy is responsible for authenticating the caller; this service never sees
// credentials. Requests without the header are rejected.
func NewHeaderAuthMiddleware(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health endpoint is deliberately unauthenticated.
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			id := strings.TrimSpace(r.Header.Get(header))
			if id == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+header+" header", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), domain.UserID(id))))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit user via X-Debug-Subject and falls back to defaultSubject
// (if provided). Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			sub := strings.TrimSpace(r.Header.Get(DebugSubjectHeader))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject (set X-Debug-Subject)", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), domain.UserID(sub))))
		})
	}
}
