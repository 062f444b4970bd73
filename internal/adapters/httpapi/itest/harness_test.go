package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/clock"
	memevents "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/events"
	memexpenserepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/expenserepo"
	memidempotency "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/idempotency"
	meminviterepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/inviterepo"
	memmemberrepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/memberrepo"
	memtriprepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/memory/triprepo"
	pgexpenserepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/expenserepo"
	pgidempotency "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/idempotency"
	pginviterepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/inviterepo"
	pgmemberrepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/memberrepo"
	postgres_testutil "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres/triprepo"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/expenses"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/members"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/trips"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/triplock"
	expenserepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/expenserepo"
	idempotencyport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/idempotency"
	inviterepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/inviterepo"
	memberrepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/memberrepo"
	triprepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/triprepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	events  *memevents.Recorder
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		tripRepo    triprepoport.Repository
		memberRepo  memberrepoport.Repository
		inviteRepo  inviterepoport.Repository
		expenseRepo expenserepoport.Repository
		idemStore   idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		tripRepo = pgtriprepo.NewRepo(pool)
		memberRepo = pgmemberrepo.NewRepo(pool)
		inviteRepo = pginviterepo.NewRepo(pool)
		expenseRepo = pgexpenserepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		tripRepo = memtriprepo.NewRepo()
		memberRepo = memmemberrepo.NewRepo()
		inviteRepo = meminviterepo.NewRepo()
		expenseRepo = memexpenserepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	registry := members.NewService(tripRepo, memberRepo)
	locks := triplock.NewRegistry()
	rec := memevents.NewRecorder()
	tripSvc := trips.NewService(tripRepo, memberRepo, inviteRepo, registry, locks, clk, logging.Discard())
	expenseSvc := expenses.NewService(expenses.Deps{
		Expenses: expenseRepo,
		Members:  registry,
		Locks:    locks,
		Clock:    clk,
		Events:   rec,
		Logger:   logging.Discard(),
	})
	api := httpapi.NewServer(tripSvc, expenseSvc, idemStore, clk, logging.Discard())

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		events:  rec,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set(httpapi.DebugSubjectHeader, subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
