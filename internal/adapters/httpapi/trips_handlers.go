package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/trips"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req createTripRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeValidationError(w, r, "", err.Error())
		return
	}

	t, err := s.Trips.CreateTrip(r.Context(), caller, trips.CreateTripInput{
		Name:         req.Name,
		StartDate:    fromDate(req.StartDate),
		EndDate:      fromDate(req.EndDate),
		BaseCurrency: req.BaseCurrency,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTripResponse(t))
}

func (s *Server) ListMyTrips(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	ts, err := s.Trips.ListMyTrips(r.Context(), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := tripListResponse{Trips: make([]tripResponse, 0, len(ts))}
	for _, t := range ts {
		resp.Trips = append(resp.Trips, toTripResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	t, err := s.Trips.GetTrip(r.Context(), tripIDParam(r), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripResponse(t))
}

// CreateInvite accepts an empty body, which issues a code with the default expiry.
func (s *Server) CreateInvite(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if err := decodeJSON(r, &req, false); err != nil && !errors.Is(err, errEmptyBody) {
		writeValidationError(w, r, "", err.Error())
		return
	}

	inv, err := s.Trips.CreateInvite(r.Context(), tripIDParam(r), caller, trips.CreateInviteInput{
		ExpiresInHours: optional(req.ExpiresInHours),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inviteResponse{InviteCode: inv.Code, ExpiresAt: inv.ExpiresAt})
}

func (s *Server) JoinTrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeValidationError(w, r, "", err.Error())
		return
	}
	code := strings.TrimSpace(req.InviteCode)
	if code == "" {
		writeValidationError(w, r, "invite_code", "must be non-empty")
		return
	}

	res, err := s.Trips.JoinTrip(r.Context(), caller, code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := "joined"
	if !res.Joined {
		status = "already_joined"
	}
	writeJSON(w, http.StatusCreated, joinResponse{TripID: string(res.TripID), Status: status})
}

func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	ms, err := s.Trips.ListMembers(r.Context(), tripIDParam(r), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := memberListResponse{Members: make([]memberResponse, 0, len(ms))}
	for _, m := range ms {
		resp.Members = append(resp.Members, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) RemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	target := domain.UserID(chi.URLParam(r, "userId"))
	if err := s.Trips.RemoveMember(r.Context(), tripIDParam(r), caller, target); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tripIDParam(r *http.Request) domain.TripID {
	return domain.TripID(chi.URLParam(r, "tripId"))
}
