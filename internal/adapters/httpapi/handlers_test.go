package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/clock"
	memevents "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/events"
	memexpenserepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/expenserepo"
	memidempotency "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/idempotency"
	meminviterepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/inviterepo"
	memmemberrepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/memberrepo"
	memtriprepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/triprepo"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/expenses"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/members"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/trips"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/triplock"
)

const userHeader = "X-User-ID"

type testAPI struct {
	h      http.Handler
	clk    *memclock.ManualClock
	events *memevents.Recorder
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	tripRepo := memtriprepo.NewRepo()
	memberRepo := memmemberrepo.NewRepo()
	registry := members.NewService(tripRepo, memberRepo)
	locks := triplock.NewRegistry()
	rec := memevents.NewRecorder()

	tripSvc := trips.NewService(tripRepo, memberRepo, meminviterepo.NewRepo(), registry, locks, clk, logging.Discard())
	expenseSvc := expenses.NewService(expenses.Deps{
		Expenses: memexpenserepo.NewRepo(),
		Members:  registry,
		Locks:    locks,
		Clock:    clk,
		Events:   rec,
		Logger:   logging.Discard(),
	})
	api := NewServer(tripSvc, expenseSvc, memidempotency.NewStore(), clk, logging.Discard())
	h := NewRouterWithOptions(api, RouterOptions{AuthMiddleware: NewHeaderAuthMiddleware(userHeader)})
	return &testAPI{h: h, clk: clk, events: rec}
}

func (a *testAPI) do(t *testing.T, method, path, user string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body=%s", rr.Body.String())
	return out
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	require.Equal(t, status, rr.Code, "body=%s", rr.Body.String())
	er := decode[ErrorResponse](t, rr)
	require.Equal(t, code, er.Error.Code, "body=%s", rr.Body.String())
	return er
}

// setupTrip creates a USD trip owned by alice with bob joined through an invite.
func (a *testAPI) setupTrip(t *testing.T) string {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/trips", "alice", map[string]any{"name": "Road trip", "base_currency": "usd"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	trip := decode[tripResponse](t, rr)

	rr = a.do(t, http.MethodPost, "/trips/"+trip.ID+"/invite", "alice", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	inv := decode[inviteResponse](t, rr)

	rr = a.do(t, http.MethodPost, "/trips/join", "bob", joinRequest{InviteCode: inv.InviteCode})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return trip.ID
}

func expenseBody(amount string) map[string]any {
	return map[string]any{
		"amount":       amount,
		"currency":     "USD",
		"category":     "Food",
		"expense_time": "2025-03-01T19:30:00Z",
	}
}

func TestHealthz_NoAuth(t *testing.T) {
	a := newTestAPI(t)
	rr := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMissingIdentity_Unauthorized(t *testing.T) {
	a := newTestAPI(t)
	rr := a.do(t, http.MethodGet, "/trips", "", nil)
	er := requireError(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")
	assert.True(t, er.Error.RequestId.IsSpecified())
}

func TestDevAuthMiddleware_DefaultSubject(t *testing.T) {
	var got string
	h := NewDevAuthMiddleware("dev-user")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserIDFromContext(r.Context())
		got = string(id)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trips", nil))
	assert.Equal(t, "dev-user", got)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set(DebugSubjectHeader, "other")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "other", got)
}

func TestTripLifecycle(t *testing.T) {
	a := newTestAPI(t)
	tripID := a.setupTrip(t)

	rr := a.do(t, http.MethodGet, "/trips/"+tripID, "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	trip := decode[tripResponse](t, rr)
	assert.Equal(t, "USD", trip.BaseCurrency)
	assert.Equal(t, "alice", trip.OwnerUserID)

	rr = a.do(t, http.MethodGet, "/trips/"+tripID+"/members", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ms := decode[memberListResponse](t, rr)
	require.Len(t, ms.Members, 2)
	assert.Equal(t, "owner", ms.Members[0].Role)

	rr = a.do(t, http.MethodGet, "/trips", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[tripListResponse](t, rr).Trips, 1)

	requireError(t, a.do(t, http.MethodGet, "/trips/"+tripID, "mallory", nil), http.StatusForbidden, "NOT_MEMBER")
	requireError(t, a.do(t, http.MethodPost, "/trips/"+tripID+"/invite", "bob", nil), http.StatusForbidden, "ROLE_REQUIRED")
	requireError(t, a.do(t, http.MethodDelete, "/trips/"+tripID+"/members/alice", "alice", nil), http.StatusBadRequest, "OWNER_NOT_REMOVABLE")

	rr = a.do(t, http.MethodDelete, "/trips/"+tripID+"/members/bob", "alice", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	requireError(t, a.do(t, http.MethodGet, "/trips/"+tripID, "bob", nil), http.StatusForbidden, "NOT_MEMBER")
}

func TestJoinTrip_AlreadyJoinedAndBadCodes(t *testing.T) {
	a := newTestAPI(t)
	rr := a.do(t, http.MethodPost, "/trips", "alice", map[string]any{"name": "Trip", "base_currency": "EUR"})
	require.Equal(t, http.StatusCreated, rr.Code)
	tripID := decode[tripResponse](t, rr).ID

	rr = a.do(t, http.MethodPost, "/trips/"+tripID+"/invite", "alice", map[string]any{"expires_in_hours": 1})
	require.Equal(t, http.StatusCreated, rr.Code)
	inv := decode[inviteResponse](t, rr)
	require.NotNil(t, inv.ExpiresAt)
	assert.True(t, a.clk.Now().Add(time.Hour).Equal(*inv.ExpiresAt))

	rr = a.do(t, http.MethodPost, "/trips/join", "alice", joinRequest{InviteCode: inv.InviteCode})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "already_joined", decode[joinResponse](t, rr).Status)

	rr = a.do(t, http.MethodPost, "/trips/join", "bob", joinRequest{InviteCode: inv.InviteCode})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, joinResponse{TripID: tripID, Status: "joined"}, decode[joinResponse](t, rr))

	requireError(t, a.do(t, http.MethodPost, "/trips/join", "carol", joinRequest{InviteCode: "nope"}), http.StatusNotFound, "INVITE_NOT_FOUND")

	a.clk.Advance(2 * time.Hour)
	requireError(t, a.do(t, http.MethodPost, "/trips/join", "carol", joinRequest{InviteCode: inv.InviteCode}), http.StatusBadRequest, "INVITE_EXPIRED")

	requireError(t, a.do(t, http.MethodPost, "/trips/"+tripID+"/invite", "alice", map[string]any{"expires_in_hours": 721}), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestCreateTrip_Validation(t *testing.T) {
	a := newTestAPI(t)
	er := requireError(t, a.do(t, http.MethodPost, "/trips", "alice", map[string]any{"name": "x", "base_currency": "Z1Z"}), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	details, err := er.Error.Details.Get()
	require.NoError(t, err)
	assert.Equal(t, "base_currency", details["field"])

	requireError(t, a.do(t, http.MethodPost, "/trips", "alice", "{not json"), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestCreateExpense_DefaultsAndConversion(t *testing.T) {
	a := newTestAPI(t)
	tripID := a.setupTrip(t)

	rr := a.do(t, http.MethodPost, "/trips/"+tripID+"/expenses", "bob", expenseBody("12.50"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	e := decode[expenseResponse](t, rr)
	assert.Equal(t, "bob", e.PaidByUserID)
	assert.Equal(t, "bob", e.OwnerUserID)
	assert.Equal(t, "equal", e.SplitMode)
	assert.ElementsMatch(t, []string{"alice", "bob"}, e.SplitWithUserIDs)
	assert.True(t, e.FXRateToBase.Equal(decimal.NewFromInt(1)))
	assert.True(t, e.AmountInBase.Equal(decimal.RequireFromString("12.5")))

	body := expenseBody("10")
	body["currency"] = "JPY"
	requireError(t, a.do(t, http.MethodPost, "/trips/"+tripID+"/expenses", "bob", body), http.StatusUnprocessableEntity, "MISSING_RATE")

	body["fx_rate_to_base"] = "150"
	rr = a.do(t, http.MethodPost, "/trips/"+tripID+"/expenses", "bob", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, decode[expenseResponse](t, rr).AmountInBase.Equal(decimal.NewFromInt(1500)))

	assert.Len(t, a.events.Events(), 2)
}

func TestCreateExpense_CustomSplitMismatch(t *testing.T) {
	a := newTestAPI(t)
	tripID := a.setupTrip(t)

	body := expenseBody("10.00")
	body["split_mode"] = "custom"
	body["split_with_user_ids"] = []string{"alice", "bob"}
	body["custom_split_amounts"] = map[string]string{"alice": "5.00", "bob": "4.99"}
	requireError(t, a.do(t, http.MethodPost, "/trips/"+tripID+"/expenses", "alice", body), http.StatusUnprocessableEntity, "SPLIT_SUM_MISMATCH")

	body["split_with_user_ids"] = []string{"alice", "zed"}
	requireError(t, a.do(t, http.MethodPost, "/trips/"+tripID+"/expenses", "alice", body), http.StatusUnprocessableEntity, "PARTICIPANT_NOT_MEMBER")
}

func TestCreateExpense_IdempotencyKey(t *testing.T) {
	a := newTestAPI(t)
	tripID := a.setupTrip(t)
	path := "/trips/" + tripID + "/expenses"

	first := a.do(t, http.MethodPost, path, "alice", expenseBody("20"), IdempotencyKeyHeader, "k1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := a.do(t, http.MethodPost, path, "alice", expenseBody("20"), IdempotencyKeyHeader, "k1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	requireError(t, a.do(t, http.MethodPost, path, "alice", expenseBody("21"), IdempotencyKeyHeader, "k1"), http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	// Keys are scoped per user.
	rr := a.do(t, http.MethodPost, path, "bob", expenseBody("21"), IdempotencyKeyHeader, "k1")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = a.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[expenseListResponse](t, rr).Expenses, 2)
}

func TestCreateExpense_IdempotencyKeyFreeAfterRejection(t *testing.T) {
	a := newTestAPI(t)
	tripID := a.setupTrip(t)
	path := "/trips/" + tripID + "/expenses"

	bad := expenseBody("20")
	bad["currency"] = "JPY"
	requireError(t, a.do(t, http.MethodPost, path, "alice", bad, IdempotencyKeyHeader, "k2"), http.StatusUnprocessableEntity, "MISSING_RATE")

	first := a.do(t, http.MethodPost, path, "alice", expenseBody("20"), IdempotencyKeyHeader, "k2")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := a.do(t, http.MethodPost, path, "alice", expenseBody("20"), IdempotencyKeyHeader, "k2")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	// The successful body now owns the key.
	requireError(t, a.do(t, http.MethodPost, path, "alice", bad, IdempotencyKeyHeader, "k2"), http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	rr := a.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[expenseListResponse](t, rr).Expenses, 1)
}

func TestUpdateExpense(t *testing.T) {
	a := newTestAPI(t)
	tripID := a.setupTrip(t)

	body := expenseBody("30")
	body["note"] = "dinner"
	rr := a.do(t, http.MethodPost, "/trips/"+tripID+"/expenses", "alice", body)
	require.Equal(t, http.StatusCreated, rr.Code)
	e := decode[expenseResponse](t, rr)
	path := "/trips/" + tripID + "/expenses/" + e.ID

	requireError(t, a.do(t, http.MethodPatch, path, "alice", map[string]any{"amout": "1"}), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	requireError(t, a.do(t, http.MethodPatch, path, "bob", map[string]any{"amount": "1"}), http.StatusForbidden, "EDIT_FORBIDDEN")
	requireError(t, a.do(t, http.MethodPatch, path, "alice", map[string]any{"category": nil}), http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rr = a.do(t, http.MethodPatch, path, "bob", map[string]any{"split_with_user_ids": []string{"bob"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"bob"}, decode[expenseResponse](t, rr).SplitWithUserIDs)

	rr = a.do(t, http.MethodPatch, path, "alice", map[string]any{"note": nil, "amount": "45"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[expenseResponse](t, rr)
	assert.Nil(t, updated.Note)
	assert.True(t, updated.AmountInBase.Equal(decimal.NewFromInt(45)))

	requireError(t, a.do(t, http.MethodPatch, "/trips/"+tripID+"/expenses/missing", "alice", map[string]any{"note": "x"}), http.StatusNotFound, "EXPENSE_NOT_FOUND")
}

func TestDeleteExpense_CreatorOnly(t *testing.T) {
	a := newTestAPI(t)
	tripID := a.setupTrip(t)

	rr := a.do(t, http.MethodPost, "/trips/"+tripID+"/expenses", "alice", expenseBody("5"))
	require.Equal(t, http.StatusCreated, rr.Code)
	path := "/trips/" + tripID + "/expenses/" + decode[expenseResponse](t, rr).ID

	requireError(t, a.do(t, http.MethodDelete, path, "bob", nil), http.StatusForbidden, "DELETE_FORBIDDEN")
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, path, "alice", nil).Code)
	requireError(t, a.do(t, http.MethodDelete, path, "alice", nil), http.StatusNotFound, "EXPENSE_NOT_FOUND")
}

func TestListAndSummary_Filters(t *testing.T) {
	a := newTestAPI(t)
	tripID := a.setupTrip(t)
	base := "/trips/" + tripID

	rr := a.do(t, http.MethodGet, base+"/analytics/summary", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	empty := decode[summaryResponse](t, rr)
	assert.True(t, empty.TotalSpendingInBase.IsZero())
	assert.Empty(t, empty.TotalSpendingByMember)

	food := expenseBody("1500")
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, base+"/expenses", "alice", food).Code)
	fuel := expenseBody("500")
	fuel["category"] = "Fuel"
	fuel["expense_time"] = "2025-03-02T09:00:00Z"
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, base+"/expenses", "bob", fuel).Code)

	rr = a.do(t, http.MethodGet, base+"/analytics/summary", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decode[summaryResponse](t, rr)
	assert.True(t, sum.TotalSpendingInBase.Equal(decimal.NewFromInt(2000)))
	assert.True(t, sum.TotalSpendingByMember["alice"].Equal(decimal.NewFromInt(1500)))
	assert.True(t, sum.TotalSpendingByDay["2025-03-02"].Equal(decimal.NewFromInt(500)))

	rr = a.do(t, http.MethodGet, base+"/expenses?from=2025-03-02", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[expenseListResponse](t, rr).Expenses
	require.Len(t, list, 1)
	assert.Equal(t, "Fuel", list[0].Category)

	rr = a.do(t, http.MethodGet, base+"/expenses?paid_by=alice", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[expenseListResponse](t, rr).Expenses, 1)

	rr = a.do(t, http.MethodGet, base+"/analytics/summary?category=Food", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[summaryResponse](t, rr).TotalSpendingInBase.Equal(decimal.NewFromInt(1500)))

	for _, q := range []string{"?category=", "?paid_by=", "?category=&paid_by=&from=&to="} {
		rr = a.do(t, http.MethodGet, base+"/expenses"+q, "alice", nil)
		require.Equal(t, http.StatusOK, rr.Code, q)
		assert.Len(t, decode[expenseListResponse](t, rr).Expenses, 2, q)
	}
	rr = a.do(t, http.MethodGet, base+"/analytics/summary?category=", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[summaryResponse](t, rr).TotalSpendingInBase.Equal(decimal.NewFromInt(2000)))

	er := requireError(t, a.do(t, http.MethodGet, base+"/expenses?from=yesterday", "alice", nil), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	details, err := er.Error.Details.Get()
	require.NoError(t, err)
	assert.Equal(t, "from", details["field"])

	rr = a.do(t, http.MethodGet, base+"/analytics/me", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, decode[summaryResponse](t, rr).TotalSpendingByCategory)
}

func TestUnknownTrip_NotFound(t *testing.T) {
	a := newTestAPI(t)
	requireError(t, a.do(t, http.MethodGet, "/trips/nope/expenses", "alice", nil), http.StatusNotFound, "TRIP_NOT_FOUND")
	requireError(t, a.do(t, http.MethodGet, "/nowhere", "alice", nil), http.StatusNotFound, "NOT_FOUND")
}
