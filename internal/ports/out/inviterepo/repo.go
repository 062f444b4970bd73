package inviterepo

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

var (
	ErrNotFound      = errors.New("invite not found")
	ErrAlreadyExists = errors.New("invite code already exists")
)

// Repository stores trip invites.
type Repository interface {
	// Issue deactivates any active invite for inv.TripID and stores inv, atomically.
	// A colliding code returns ErrAlreadyExists.
	Issue(ctx context.Context, inv domain.Invite) error

	// GetByCode returns the invite for code, active or not.
	GetByCode(ctx context.Context, code string) (domain.Invite, error)
}
