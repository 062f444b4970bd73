package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultIdentityHeader carries the authenticated user id set by the upstream proxy.
const DefaultIdentityHeader = "X-User-ID"

type RouterOptions struct {
	// AuthMiddleware resolves the acting user. Defaults to header auth on IdentityHeader.
	AuthMiddleware func(http.Handler) http.Handler
	// IdentityHeader defaults to DefaultIdentityHeader.
	IdentityHeader string
	// AllowedOrigins enables CORS for browser clients. Empty disables CORS.
	AllowedOrigins []string
	// Logger receives one line per request. Nil disables request logging.
	Logger *slog.Logger
}

// NewRouter constructs the API router with header-based identity.
func NewRouter(api *Server) http.Handler {
	return NewRouterWithOptions(api, RouterOptions{})
}

func NewRouterWithOptions(api *Server, opts RouterOptions) http.Handler {
	header := opts.IdentityHeader
	if header == "" {
		header = DefaultIdentityHeader
	}
	auth := opts.AuthMiddleware
	if auth == nil {
		auth = NewHeaderAuthMiddleware(header)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(NewRequestLogger(opts.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(NewCORSMiddleware(opts.AllowedOrigins, header))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/trips", api.CreateTrip)
		r.Get("/trips", api.ListMyTrips)
		r.Post("/trips/join", api.JoinTrip)

		r.Route("/trips/{tripId}", func(r chi.Router) {
			r.Get("/", api.GetTrip)
			r.Post("/invite", api.CreateInvite)
			r.Get("/members", api.ListMembers)
			r.Delete("/members/{userId}", api.RemoveMember)

			r.Post("/expenses", api.CreateExpense)
			r.Get("/expenses", api.ListExpenses)
			r.Patch("/expenses/{expenseId}", api.UpdateExpense)
			r.Delete("/expenses/{expenseId}", api.DeleteExpense)

			r.Get("/analytics/summary", api.Summary)
			r.Get("/analytics/me", api.MySummary)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}
