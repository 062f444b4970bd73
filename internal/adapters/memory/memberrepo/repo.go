package memberrepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	// byTrip keeps each trip's members in join order.
	byTrip map[domain.TripID][]domain.TripMember
}

func NewRepo() *Repo {
	return &Repo{
		byTrip: make(map[domain.TripID][]domain.TripMember),
	}
}

func (r *Repo) Add(ctx context.Context, m domain.TripMember) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byTrip[m.TripID] {
		if existing.UserID == m.UserID {
			return memberrepo.ErrAlreadyExists
		}
	}
	r.byTrip[m.TripID] = append(r.byTrip[m.TripID], cloneMember(m))
	return nil
}

func (r *Repo) Get(ctx context.Context, trip domain.TripID, user domain.UserID) (domain.TripMember, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byTrip[trip] {
		if m.UserID == user {
			return cloneMember(m), nil
		}
	}
	return domain.TripMember{}, memberrepo.ErrNotFound
}

func (r *Repo) Remove(ctx context.Context, trip domain.TripID, user domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := r.byTrip[trip]
	for i, m := range ms {
		if m.UserID != user {
			continue
		}
		out := make([]domain.TripMember, 0, len(ms)-1)
		out = append(out, ms[:i]...)
		out = append(out, ms[i+1:]...)
		r.byTrip[trip] = out
		return nil
	}
	return memberrepo.ErrNotFound
}

func (r *Repo) ListByTrip(ctx context.Context, trip domain.TripID) ([]domain.TripMember, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	ms := r.byTrip[trip]
	out := make([]domain.TripMember, 0, len(ms))
	for _, m := range ms {
		out = append(out, cloneMember(m))
	}
	return out, nil
}

func (r *Repo) ListByUser(ctx context.Context, user domain.UserID) ([]domain.TripMember, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TripMember, 0)
	for _, ms := range r.byTrip {
		for _, m := range ms {
			if m.UserID == user {
				out = append(out, cloneMember(m))
			}
		}
	}
	sortByJoinedAt(out)
	return out, nil
}

func cloneMember(m domain.TripMember) domain.TripMember {
	out := m
	if m.Nickname != nil {
		v := *m.Nickname
		out.Nickname = &v
	}
	return out
}
