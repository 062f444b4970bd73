package events

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

type Type string

const (
	ExpenseCreated Type = "expense.created"
	ExpenseUpdated Type = "expense.updated"
	ExpenseDeleted Type = "expense.deleted"
)

// Event describes a committed ledger change.
type Event struct {
	Type       Type             `json:"type"`
	TripID     domain.TripID    `json:"trip_id"`
	ExpenseID  domain.ExpenseID `json:"expense_id"`
	ActorID    domain.UserID    `json:"actor_user_id"`
	OccurredAt time.Time        `json:"occurred_at"`

	// AmountInBase is empty for deletions.
	AmountInBase string `json:"amount_in_base,omitempty"`
	BaseCurrency string `json:"base_currency,omitempty"`
}

// Publisher delivers events after the write they describe has committed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
