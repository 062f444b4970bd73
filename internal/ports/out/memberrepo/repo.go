package memberrepo

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

var (
	// ErrNotFound means the user holds no membership in the trip. Add may also
	// return it when the trip itself does not exist.
	ErrNotFound = errors.New("trip member not found")

	// ErrAlreadyExists means the (trip, user) pair is already a member.
	ErrAlreadyExists = errors.New("trip member already exists")
)

// Repository provides access to trip memberships.
//
// Result ordering expectations:
// - ListByTrip returns members in join order; this order seeds default split populations.
// - ListByUser returns memberships in join order as well.
type Repository interface {
	Add(ctx context.Context, m domain.TripMember) error
	Get(ctx context.Context, trip domain.TripID, user domain.UserID) (domain.TripMember, error)
	Remove(ctx context.Context, trip domain.TripID, user domain.UserID) error

	ListByTrip(ctx context.Context, trip domain.TripID) ([]domain.TripMember, error)
	ListByUser(ctx context.Context, user domain.UserID) ([]domain.TripMember, error)
}
