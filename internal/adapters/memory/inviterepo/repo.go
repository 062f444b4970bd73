package inviterepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/inviterepo"
)

// Repo is an in-memory implementation of inviterepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu     sync.RWMutex
	byCode map[string]domain.Invite
	active map[domain.TripID]string
}

func NewRepo() *Repo {
	return &Repo{
		byCode: make(map[string]domain.Invite),
		active: make(map[domain.TripID]string),
	}
}

func (r *Repo) Issue(ctx context.Context, inv domain.Invite) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCode[inv.Code]; ok {
		return inviterepo.ErrAlreadyExists
	}
	if prev, ok := r.active[inv.TripID]; ok {
		old := r.byCode[prev]
		old.IsActive = false
		r.byCode[prev] = old
		delete(r.active, inv.TripID)
	}
	r.byCode[inv.Code] = cloneInvite(inv)
	if inv.IsActive {
		r.active[inv.TripID] = inv.Code
	}
	return nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (domain.Invite, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.byCode[code]
	if !ok {
		return domain.Invite{}, inviterepo.ErrNotFound
	}
	return cloneInvite(inv), nil
}

func cloneInvite(inv domain.Invite) domain.Invite {
	out := inv
	if inv.ExpiresAt != nil {
		v := *inv.ExpiresAt
		out.ExpiresAt = &v
	}
	return out
}
