// Package triplock hands out one reader/writer lock per trip.
//
// Writes to a trip hold its write lock across read-validate-commit so readers never
// see a half-applied change. Different trips never contend. The in-process lock only
// covers one API process; when several processes share a store, a Fence extends
// writer exclusion across all of them.
package triplock

import (
	"context"
	"fmt"
	"sync"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

// Fence serializes writers of one trip across processes. Acquire blocks until the
// caller is the only holder for id, or ctx ends.
type Fence interface {
	Acquire(ctx context.Context, id domain.TripID) (release func(), err error)
}

type Option func(*Registry)

// WithFence adds cross-process exclusion to every write lock.
func WithFence(f Fence) Option {
	return func(r *Registry) { r.fence = f }
}

type Registry struct {
	mu    sync.Mutex
	locks map[domain.TripID]*sync.RWMutex
	fence Fence
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{locks: make(map[domain.TripID]*sync.RWMutex)}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) get(id domain.TripID) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.RWMutex{}
		r.locks[id] = l
	}
	return l
}

// Lock takes the trip's write lock and returns its release func. With a fence
// configured, the local lock is taken first so a process holds at most one fence
// per trip.
func (r *Registry) Lock(ctx context.Context, id domain.TripID) (unlock func(), err error) {
	l := r.get(id)
	l.Lock()
	if r.fence == nil {
		return l.Unlock, nil
	}
	release, err := r.fence.Acquire(ctx, id)
	if err != nil {
		l.Unlock()
		return nil, fmt.Errorf("lock trip %s: %w", id, err)
	}
	return func() {
		release()
		l.Unlock()
	}, nil
}

// RLock takes the trip's read lock and returns its release func. Readers only see
// committed rows, so no fence is needed.
func (r *Registry) RLock(id domain.TripID) (unlock func()) {
	l := r.get(id)
	l.RLock()
	return l.RUnlock
}
