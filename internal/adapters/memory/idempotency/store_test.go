package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/idempotency"
)

func TestStore_BodyIsCopied(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		UserID:   "u1",
		Method:   "POST",
		Route:    "/trips/t1/expenses",
		BodyHash: "abc123",
	}
	body := []byte(`{"id":"e1"}`)
	if err := s.Put(context.Background(), fp, idempotency.Record{StatusCode: 201, ContentType: "application/json", Body: body, CreatedAt: time.Unix(1, 0).UTC()}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	body[2] = 'X'

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil || !ok {
		t.Fatalf("Get() ok=%v err=%v", ok, err)
	}
	if string(got.Body) != `{"id":"e1"}` {
		t.Fatalf("Get().Body=%q, stored body was mutated by caller", got.Body)
	}
	got.Body[2] = 'Y'

	again, _, _ := s.Get(context.Background(), fp)
	if string(again.Body) != `{"id":"e1"}` {
		t.Fatalf("stored body mutated through returned record: %q", again.Body)
	}
}

func TestStore_OtherUserMisses(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{Key: "k1", UserID: "u1", Method: "POST", Route: "/trips/t1/expenses", BodyHash: "h"}
	_ = s.Put(context.Background(), fp, idempotency.Record{StatusCode: 201})

	other := fp
	other.UserID = "u2"
	if _, ok, _ := s.Get(context.Background(), other); ok {
		t.Fatalf("Get() for another user hit a stored record")
	}
}

func TestStore_EvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStoreWithCapacity(2)
	fp := func(key string) idempotency.Fingerprint {
		return idempotency.Fingerprint{Key: idempotency.Key(key), UserID: "u1", Method: "POST", Route: "/trips/t1/expenses"}
	}

	_ = s.Put(ctx, fp("a"), idempotency.Record{Body: []byte("a")})
	_ = s.Put(ctx, fp("b"), idempotency.Record{Body: []byte("b")})
	// Overwriting an existing key does not count as a new entry.
	_ = s.Put(ctx, fp("a"), idempotency.Record{Body: []byte("a2")})
	_ = s.Put(ctx, fp("c"), idempotency.Record{Body: []byte("c")})

	if _, ok, _ := s.Get(ctx, fp("a")); ok {
		t.Fatalf("oldest record survived eviction")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok, _ := s.Get(ctx, fp(k)); !ok {
			t.Fatalf("record %q evicted too early", k)
		}
	}
}
