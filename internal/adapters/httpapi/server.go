package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/expenses"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/trips"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
	clockport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers. It translates requests into service calls and
// service results into JSON; it holds no ledger state of its own.
type Server struct {
	Trips    *trips.Service
	Expenses *expenses.Service
	Idem     idempotency.Store
	Clock    clockport.Clock

	log *slog.Logger
}

// NewServer wires the handlers. idem may be nil, in which case Idempotency-Key
// headers are ignored.
func NewServer(tripsSvc *trips.Service, expensesSvc *expenses.Service, idem idempotency.Store, clk clockport.Clock, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Trips:    tripsSvc,
		Expenses: expensesSvc,
		Idem:     idem,
		Clock:    clk,
		log:      logging.Component(log, "httpapi"),
	}
}

// caller returns the authenticated user or writes a 401.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", false
	}
	return id, true
}

var errEmptyBody = errors.New("missing request body")

// decodeJSON reads a single JSON object into dst. strict rejects unknown fields.
func decodeJSON(r *http.Request, dst any, strict bool) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
