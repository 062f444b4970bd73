package itest

import (
	"net/http"
	"strings"
	"testing"
)

type tripBody struct {
	ID           string `json:"id"`
	BaseCurrency string `json:"base_currency"`
}

type expenseBody struct {
	ID               string   `json:"id"`
	AmountInBase     string   `json:"amount_in_base"`
	SplitWithUserIDs []string `json:"split_with_user_ids"`
}

type summaryBody struct {
	Total      string            `json:"total_spending_in_base"`
	ByMember   map[string]string `json:"total_spending_by_member"`
	ByCategory map[string]string `json:"total_spending_by_category"`
}

func TestLedgerFlow(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			s := newTestServer(t, b)

			status, body, _ := s.doJSON(t, http.MethodPost, "/trips", "", map[string]any{"name": "x", "base_currency": "USD"})
			requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")

			status, body, hdr := s.doJSON(t, http.MethodPost, "/trips", "alice", map[string]any{
				"name":          "Coast run",
				"start_date":    "2024-06-01",
				"end_date":      "2024-06-07",
				"base_currency": "usd",
			})
			requireStatus(t, status, body, http.StatusCreated)
			requireHeaderPresent(t, hdr, "Content-Type")
			trip := mustUnmarshal[tripBody](t, body)
			if trip.BaseCurrency != "USD" {
				t.Fatalf("base_currency=%q", trip.BaseCurrency)
			}

			status, body, _ = s.doJSON(t, http.MethodPost, "/trips/"+trip.ID+"/invite", "alice", map[string]any{"expires_in_hours": 48})
			requireStatus(t, status, body, http.StatusCreated)
			code := mustUnmarshal[struct {
				InviteCode string `json:"invite_code"`
			}](t, body).InviteCode

			for _, u := range []string{"bob", "carol"} {
				status, body, _ = s.doJSON(t, http.MethodPost, "/trips/join", u, map[string]any{"invite_code": code})
				requireStatus(t, status, body, http.StatusCreated)
			}

			base := "/trips/" + trip.ID + "/expenses"
			status, body, _ = s.doJSON(t, http.MethodPost, base, "alice", map[string]any{
				"amount":          "10",
				"currency":        "JPY",
				"fx_rate_to_base": "150",
				"category":        "Lodging",
				"expense_time":    "2024-06-01T20:00:00-07:00",
			}, "Idempotency-Key", "lodging-1")
			requireStatus(t, status, body, http.StatusCreated)
			lodging := mustUnmarshal[expenseBody](t, body)
			if lodging.AmountInBase != "1500" {
				t.Fatalf("amount_in_base=%q want 1500", lodging.AmountInBase)
			}
			if len(lodging.SplitWithUserIDs) != 3 {
				t.Fatalf("split_with_user_ids=%v want full membership", lodging.SplitWithUserIDs)
			}

			// Retry replays the first response.
			status, body, _ = s.doJSON(t, http.MethodPost, base, "alice", map[string]any{
				"amount":          "10",
				"currency":        "JPY",
				"fx_rate_to_base": "150",
				"category":        "Lodging",
				"expense_time":    "2024-06-01T20:00:00-07:00",
			}, "Idempotency-Key", "lodging-1")
			requireStatus(t, status, body, http.StatusCreated)
			if got := mustUnmarshal[expenseBody](t, body).ID; got != lodging.ID {
				t.Fatalf("replayed id=%q want %q", got, lodging.ID)
			}

			status, body, _ = s.doJSON(t, http.MethodPost, base, "bob", map[string]any{
				"amount":               "500",
				"currency":             "USD",
				"category":             "Fuel",
				"expense_time":         "2024-06-02T09:00:00Z",
				"split_mode":           "custom",
				"split_with_user_ids":  []string{"bob", "carol"},
				"custom_split_amounts": map[string]string{"bob": "250.00", "carol": "250.00"},
			})
			requireStatus(t, status, body, http.StatusCreated)
			fuel := mustUnmarshal[expenseBody](t, body)

			status, body, _ = s.doJSON(t, http.MethodDelete, base+"/"+fuel.ID, "alice", nil)
			requireErrorCode(t, status, body, http.StatusForbidden, "DELETE_FORBIDDEN")

			status, body, _ = s.doJSON(t, http.MethodDelete, "/trips/"+trip.ID+"/members/carol", "alice", nil)
			requireStatus(t, status, body, http.StatusNoContent)

			// The fuel expense still names carol, so any edit revalidates and fails.
			status, body, _ = s.doJSON(t, http.MethodPatch, base+"/"+fuel.ID, "bob", map[string]any{"note": "diesel"})
			requireErrorCode(t, status, body, http.StatusUnprocessableEntity, "PARTICIPANT_NOT_MEMBER")

			status, body, _ = s.doJSON(t, http.MethodGet, "/trips/"+trip.ID+"/analytics/summary", "bob", nil)
			requireStatus(t, status, body, http.StatusOK)
			sum := mustUnmarshal[summaryBody](t, body)
			if sum.Total != "2000" {
				t.Fatalf("total=%q want 2000", sum.Total)
			}
			if sum.ByMember["alice"] != "1500" || sum.ByMember["bob"] != "500" {
				t.Fatalf("by_member=%v", sum.ByMember)
			}

			status, body, _ = s.doJSON(t, http.MethodGet, "/trips/"+trip.ID+"/analytics/summary", "carol", nil)
			requireErrorCode(t, status, body, http.StatusForbidden, "NOT_MEMBER")

			if got := len(s.events.Events()); got != 2 {
				t.Fatalf("events=%d want 2", got)
			}
			if !strings.HasPrefix(string(s.events.Events()[0].Type), "expense.") {
				t.Fatalf("unexpected event type %q", s.events.Events()[0].Type)
			}
		})
	}
}
