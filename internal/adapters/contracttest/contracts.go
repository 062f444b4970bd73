package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	expenserepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/expenserepo"
	idempotencyport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/idempotency"
	inviterepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/inviterepo"
	memberrepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/memberrepo"
	triprepoport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/triprepo"
)

type CleanupFunc = func()

type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type MemberRepoFactory func(t *testing.T) (memberrepoport.Repository, CleanupFunc)
type InviteRepoFactory func(t *testing.T) (inviterepoport.Repository, CleanupFunc)
type ExpenseRepoFactory func(t *testing.T) (expenserepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func open[T any](t *testing.T, f func(t *testing.T) (T, CleanupFunc)) T {
	t.Helper()
	v, cleanup := f(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return v
}

// seedTrip stores a fresh trip so adapters with foreign keys have a parent row.
func seedTrip(t *testing.T, trips triprepoport.Repository, owner domain.UserID) domain.Trip {
	t.Helper()
	now := time.Unix(1000, 0).UTC()
	trip := domain.Trip{
		ID:           domain.TripID(uuid.NewString()),
		OwnerUserID:  owner,
		Name:         "Lisbon",
		BaseCurrency: "EUR",
		Status:       domain.TripStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := trips.Create(context.Background(), trip); err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	return trip
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store := open(t, newStore)

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		UserID:   domain.UserID("user-1"),
		Method:   "POST",
		Route:    "/trips/{tripId}/expenses",
		BodyHash: "abc",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"e1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"id":"e1"}` || got.ContentType != "application/json" || got.StatusCode != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"id":"e2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"id":"e2"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Any fingerprint component change is a miss.
	other := fp
	other.BodyHash = "def"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected miss for different body hash, ok=%v err=%v", ok, err)
	}
}

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo := open(t, newRepo)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	now := time.Unix(2000, 0).UTC()
	trip := domain.Trip{
		ID:           domain.TripID(uuid.NewString()),
		OwnerUserID:  "owner-1",
		Name:         "Kyoto",
		StartDate:    &start,
		EndDate:      &end,
		BaseCurrency: "JPY",
		Status:       domain.TripStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, trip); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, trip); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.GetByID(ctx, trip.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != trip.ID || got.Name != "Kyoto" || got.BaseCurrency != "JPY" || got.OwnerUserID != "owner-1" || got.Status != domain.TripStatusActive {
		t.Fatalf("unexpected trip: %#v", got)
	}
	if got.StartDate == nil || !got.StartDate.Equal(start) || got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Fatalf("unexpected dates: start=%v end=%v", got.StartDate, got.EndDate)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt=%v, want %v", got.CreatedAt, now)
	}

	if _, err := repo.GetByID(ctx, domain.TripID(uuid.NewString())); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want ErrNotFound", err)
	}
}

func RunMemberRepo(t *testing.T, newTrips TripRepoFactory, newRepo MemberRepoFactory) {
	t.Helper()
	ctx := context.Background()

	trips := open(t, newTrips)
	repo := open(t, newRepo)

	// Unique per run so ListByUser is stable against a shared database.
	alice := domain.UserID("alice-" + uuid.NewString()[:8])
	trip := seedTrip(t, trips, alice)
	other := seedTrip(t, trips, "carol")
	joined := time.Unix(3000, 0).UTC()

	nick := "Al"
	add := func(tripID domain.TripID, user domain.UserID, role domain.MemberRole, at time.Time) {
		t.Helper()
		m := domain.TripMember{TripID: tripID, UserID: user, Role: role, JoinedAt: at}
		if user == alice {
			m.Nickname = &nick
		}
		if err := repo.Add(ctx, m); err != nil {
			t.Fatalf("Add(%s,%s): %v", tripID, user, err)
		}
	}
	add(trip.ID, alice, domain.MemberRoleOwner, joined)
	add(trip.ID, "zed", domain.MemberRoleMember, joined.Add(time.Minute))
	add(trip.ID, "bob", domain.MemberRoleMember, joined.Add(2*time.Minute))
	add(other.ID, "carol", domain.MemberRoleOwner, joined)
	add(other.ID, alice, domain.MemberRoleMember, joined.Add(time.Hour))

	if err := repo.Add(ctx, domain.TripMember{TripID: trip.ID, UserID: "bob", Role: domain.MemberRoleMember, JoinedAt: joined}); !errors.Is(err, memberrepoport.ErrAlreadyExists) {
		t.Fatalf("Add duplicate err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.Get(ctx, trip.ID, alice)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsOwner() || got.Nickname == nil || *got.Nickname != "Al" || !got.JoinedAt.Equal(joined) {
		t.Fatalf("unexpected member: %#v", got)
	}
	if _, err := repo.Get(ctx, trip.ID, "carol"); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Get non-member err=%v, want ErrNotFound", err)
	}

	// Join order, not lexical order.
	ms, err := repo.ListByTrip(ctx, trip.ID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(ms) != 3 || ms[0].UserID != alice || ms[1].UserID != "zed" || ms[2].UserID != "bob" {
		t.Fatalf("unexpected member order: %#v", ms)
	}

	mine, err := repo.ListByUser(ctx, alice)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(mine) != 2 || mine[0].TripID != trip.ID || mine[1].TripID != other.ID {
		t.Fatalf("unexpected memberships: %#v", mine)
	}

	if err := repo.Remove(ctx, trip.ID, "zed"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := repo.Remove(ctx, trip.ID, "zed"); !errors.Is(err, memberrepoport.ErrNotFound) {
		t.Fatalf("Remove twice err=%v, want ErrNotFound", err)
	}
	ms, _ = repo.ListByTrip(ctx, trip.ID)
	if len(ms) != 2 || ms[0].UserID != alice || ms[1].UserID != "bob" {
		t.Fatalf("unexpected members after remove: %#v", ms)
	}

	empty, err := repo.ListByTrip(ctx, domain.TripID(uuid.NewString()))
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListByTrip unknown trip = %#v, %v", empty, err)
	}
}

func RunInviteRepo(t *testing.T, newTrips TripRepoFactory, newRepo InviteRepoFactory) {
	t.Helper()
	ctx := context.Background()

	trips := open(t, newTrips)
	repo := open(t, newRepo)

	trip := seedTrip(t, trips, "alice")
	now := time.Unix(4000, 0).UTC()
	exp := now.Add(24 * time.Hour)

	first := domain.Invite{
		ID:              domain.InviteID(uuid.NewString()),
		TripID:          trip.ID,
		Code:            "code-" + uuid.NewString()[:8],
		ExpiresAt:       &exp,
		IsActive:        true,
		CreatedAt:       now,
		CreatedByUserID: "alice",
	}
	if err := repo.Issue(ctx, first); err != nil {
		t.Fatalf("Issue first: %v", err)
	}
	got, err := repo.GetByCode(ctx, first.Code)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got.TripID != trip.ID || !got.IsActive || got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected invite: %#v", got)
	}

	second := first
	second.ID = domain.InviteID(uuid.NewString())
	second.Code = "code-" + uuid.NewString()[:8]
	second.ExpiresAt = nil
	if err := repo.Issue(ctx, second); err != nil {
		t.Fatalf("Issue second: %v", err)
	}

	old, err := repo.GetByCode(ctx, first.Code)
	if err != nil {
		t.Fatalf("GetByCode old: %v", err)
	}
	if old.IsActive {
		t.Fatalf("expected previous invite to be deactivated")
	}
	cur, err := repo.GetByCode(ctx, second.Code)
	if err != nil || !cur.IsActive || cur.ExpiresAt != nil {
		t.Fatalf("unexpected current invite: %#v err=%v", cur, err)
	}

	dup := second
	dup.ID = domain.InviteID(uuid.NewString())
	if err := repo.Issue(ctx, dup); !errors.Is(err, inviterepoport.ErrAlreadyExists) {
		t.Fatalf("Issue duplicate code err=%v, want ErrAlreadyExists", err)
	}

	if _, err := repo.GetByCode(ctx, "nope"); !errors.Is(err, inviterepoport.ErrNotFound) {
		t.Fatalf("GetByCode missing err=%v, want ErrNotFound", err)
	}
}

func RunExpenseRepo(t *testing.T, newTrips TripRepoFactory, newRepo ExpenseRepoFactory) {
	t.Helper()
	ctx := context.Background()

	trips := open(t, newTrips)
	repo := open(t, newRepo)

	trip := seedTrip(t, trips, "alice")
	tokyo := time.FixedZone("", 9*60*60)
	now := time.Unix(5000, 0).UTC()
	note := "ramen"

	mk := func(amount string) domain.Expense {
		a := decimal.RequireFromString(amount)
		rate := decimal.RequireFromString("0.0062")
		return domain.Expense{
			ID:              domain.ExpenseID(uuid.NewString()),
			TripID:          trip.ID,
			CreatedByUserID: "alice",
			OwnerUserID:     "alice",
			PaidByUserID:    "bob",
			Amount:          a,
			Currency:        "JPY",
			FXRateToBase:    rate,
			AmountInBase:    domain.BaseAmount(a, rate),
			Category:        "food",
			SplitMode:       domain.SplitModeEqual,
			SplitWith:       []domain.UserID{"bob", "alice"},
			ExpenseTime:     time.Date(2025, 6, 2, 7, 30, 0, 0, tokyo),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	a := mk("1500")
	a.Note = &note
	b := mk("500")
	b.SplitMode = domain.SplitModeCustom
	b.ParticipantsPinned = true
	b.CustomSplitAmounts = map[domain.UserID]decimal.Decimal{
		"bob":   decimal.RequireFromString("499.99"),
		"alice": decimal.RequireFromString("0.01"),
	}
	c := mk("32.25806451612903225806451613")

	for _, e := range []domain.Expense{a, b, c} {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := repo.Append(ctx, a); !errors.Is(err, expenserepoport.ErrAlreadyExists) {
		t.Fatalf("Append duplicate err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.Get(ctx, trip.ID, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Amount.Equal(b.Amount) || !got.AmountInBase.Equal(b.AmountInBase) || !got.FXRateToBase.Equal(b.FXRateToBase) {
		t.Fatalf("decimal round trip: %#v", got)
	}
	if got.SplitMode != domain.SplitModeCustom || !got.ParticipantsPinned || len(got.SplitWith) != 2 || got.SplitWith[0] != "bob" {
		t.Fatalf("split round trip: %#v", got)
	}
	if len(got.CustomSplitAmounts) != 2 || !got.CustomSplitAmounts["alice"].Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("custom amounts round trip: %#v", got.CustomSplitAmounts)
	}
	if !got.ExpenseTime.Equal(b.ExpenseTime) || got.Day() != "2025-06-02" {
		t.Fatalf("expense time round trip: %v day=%s", got.ExpenseTime, got.Day())
	}

	exact, err := repo.Get(ctx, trip.ID, c.ID)
	if err != nil {
		t.Fatalf("Get exact: %v", err)
	}
	if !exact.Amount.Equal(decimal.RequireFromString("32.25806451612903225806451613")) {
		t.Fatalf("lost precision: %s", exact.Amount)
	}

	gotA, err := repo.Get(ctx, trip.ID, a.ID)
	if err != nil || gotA.Note == nil || *gotA.Note != "ramen" || gotA.CustomSplitAmounts != nil {
		t.Fatalf("unexpected a: %#v err=%v", gotA, err)
	}

	// Replace keeps position.
	a2 := a.Clone()
	a2.Category = "drinks"
	a2.Note = nil
	if err := repo.Replace(ctx, a2); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	list, err := repo.ListByTrip(ctx, trip.ID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(list) != 3 || list[0].ID != a.ID || list[1].ID != b.ID || list[2].ID != c.ID {
		t.Fatalf("unexpected order: %v", []domain.ExpenseID{list[0].ID, list[1].ID, list[2].ID})
	}
	if list[0].Category != "drinks" || list[0].Note != nil {
		t.Fatalf("replace not applied: %#v", list[0])
	}

	missing := mk("1")
	if err := repo.Replace(ctx, missing); !errors.Is(err, expenserepoport.ErrNotFound) {
		t.Fatalf("Replace missing err=%v, want ErrNotFound", err)
	}

	if err := repo.Remove(ctx, trip.ID, b.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := repo.Remove(ctx, trip.ID, b.ID); !errors.Is(err, expenserepoport.ErrNotFound) {
		t.Fatalf("Remove twice err=%v, want ErrNotFound", err)
	}
	if _, err := repo.Get(ctx, trip.ID, b.ID); !errors.Is(err, expenserepoport.ErrNotFound) {
		t.Fatalf("Get removed err=%v, want ErrNotFound", err)
	}
	list, _ = repo.ListByTrip(ctx, trip.ID)
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != c.ID {
		t.Fatalf("unexpected list after remove: %#v", list)
	}

	// Returned records never alias stored state.
	list[0].SplitWith[0] = "mallory"
	again, _ := repo.Get(ctx, trip.ID, a.ID)
	if again.SplitWith[0] != "bob" {
		t.Fatalf("stored record mutated through returned slice")
	}
}
