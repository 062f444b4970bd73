package triprepo

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

var (
	ErrNotFound      = errors.New("trip not found")
	ErrAlreadyExists = errors.New("trip id already in use")
)

// Repository provides access to persisted trips.
//
// Trips are created once; base currency is immutable so there is no update path yet.
type Repository interface {
	// Create returns ErrAlreadyExists when t.ID is taken.
	Create(ctx context.Context, t domain.Trip) error
	GetByID(ctx context.Context, id domain.TripID) (domain.Trip, error)
}
