package expenserepo

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

var (
	ErrNotFound      = errors.New("expense not found")
	ErrAlreadyExists = errors.New("expense already exists")
)

// Repository stores a trip's expense collection.
//
// Callers serialize writes per trip; implementations only need each call to be atomic.
// ListByTrip returns expenses in insertion order, and Replace keeps a record's position.
type Repository interface {
	Append(ctx context.Context, e domain.Expense) error
	Replace(ctx context.Context, e domain.Expense) error
	Remove(ctx context.Context, trip domain.TripID, id domain.ExpenseID) error

	Get(ctx context.Context, trip domain.TripID, id domain.ExpenseID) (domain.Expense, error)
	ListByTrip(ctx context.Context, trip domain.TripID) ([]domain.Expense, error)
}
