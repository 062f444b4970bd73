package idempotency

import (
	"bytes"
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/idempotency"
)

// DefaultCapacity bounds how many records a Store keeps before evicting the oldest.
const DefaultCapacity = 10_000

// Store is an in-memory implementation of idempotency.Store.
//
// It holds at most capacity records; once full, the earliest inserted record is
// dropped. Response bodies are copied in and out. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	capacity int
	recs     map[idempotency.Fingerprint]idempotency.Record
	order    []idempotency.Fingerprint // insertion order, oldest first
}

func NewStore() *Store { return NewStoreWithCapacity(DefaultCapacity) }

// NewStoreWithCapacity returns a Store bounded to capacity records. Non-positive
// values fall back to DefaultCapacity.
func NewStoreWithCapacity(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		recs:     make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	rec.Body = bytes.Clone(rec.Body)
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	rec.Body = bytes.Clone(rec.Body)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recs[fp]; !exists {
		for len(s.order) >= s.capacity {
			delete(s.recs, s.order[0])
			s.order = s.order[1:]
		}
		s.order = append(s.order, fp)
	}
	s.recs[fp] = rec
	return nil
}
