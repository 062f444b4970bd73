package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
)

// ErrorResponse is the envelope for every non-2xx response.
type ErrorResponse struct {
	Error struct {
		Code      string                            `json:"code"`
		Message   string                            `json:"message"`
		Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
		RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(er)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	var details map[string]any
	if field != "" {
		details = map[string]any{"field": field}
	}
	writeError(w, r, http.StatusUnprocessableEntity, string(domain.KindValidation), message, details)
}

// statusForKind maps ledger error kinds onto HTTP statuses.
func statusForKind(k domain.ErrorKind) int {
	switch k {
	case domain.KindNotMember, domain.KindRole, domain.KindEditForbidden, domain.KindDeleteForbidden:
		return http.StatusForbidden
	case domain.KindTripNotFound, domain.KindExpenseNotFound, domain.KindInviteNotFound:
		return http.StatusNotFound
	case domain.KindInviteInactive, domain.KindInviteExpired, domain.KindOwnerNotRemovable:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

// writeServiceError renders err. Ledger errors keep their kind as the code; anything
// else is logged and reported as an opaque 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		var details map[string]any
		if de.Field != "" {
			details = map[string]any{"field": de.Field}
		}
		msg := de.Message
		if msg == "" {
			msg = string(de.Kind)
		}
		writeError(w, r, statusForKind(de.Kind), string(de.Kind), msg, details)
		return
	}
	s.log.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		logging.FieldRequestID, middleware.GetReqID(r.Context()),
		logging.FieldError, err,
	)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
