package expenserepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/expenserepo"
)

// Repo is an in-memory implementation of expenserepo.Repository.
// Each trip's expenses are kept as an insertion-ordered slice. It is safe for concurrent use.
type Repo struct {
	mu     sync.RWMutex
	byTrip map[domain.TripID][]domain.Expense
}

func NewRepo() *Repo {
	return &Repo{
		byTrip: make(map[domain.TripID][]domain.Expense),
	}
}

func (r *Repo) Append(ctx context.Context, e domain.Expense) error {
	_ = ctx
	if e.ID == "" {
		return expenserepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if indexOf(r.byTrip[e.TripID], e.ID) >= 0 {
		return expenserepo.ErrAlreadyExists
	}
	r.byTrip[e.TripID] = append(r.byTrip[e.TripID], e.Clone())
	return nil
}

func (r *Repo) Replace(ctx context.Context, e domain.Expense) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byTrip[e.TripID]
	i := indexOf(items, e.ID)
	if i < 0 {
		return expenserepo.ErrNotFound
	}
	items[i] = e.Clone()
	return nil
}

func (r *Repo) Remove(ctx context.Context, trip domain.TripID, id domain.ExpenseID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byTrip[trip]
	i := indexOf(items, id)
	if i < 0 {
		return expenserepo.ErrNotFound
	}
	out := make([]domain.Expense, 0, len(items)-1)
	out = append(out, items[:i]...)
	out = append(out, items[i+1:]...)
	r.byTrip[trip] = out
	return nil
}

func (r *Repo) Get(ctx context.Context, trip domain.TripID, id domain.ExpenseID) (domain.Expense, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.byTrip[trip]
	i := indexOf(items, id)
	if i < 0 {
		return domain.Expense{}, expenserepo.ErrNotFound
	}
	return items[i].Clone(), nil
}

func (r *Repo) ListByTrip(ctx context.Context, trip domain.TripID) ([]domain.Expense, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := r.byTrip[trip]
	out := make([]domain.Expense, 0, len(items))
	for _, e := range items {
		out = append(out, e.Clone())
	}
	return out, nil
}

func indexOf(items []domain.Expense, id domain.ExpenseID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
