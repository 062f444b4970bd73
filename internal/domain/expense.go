package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SplitMode string

const (
	SplitModeEqual  SplitMode = "equal"
	SplitModeCustom SplitMode = "custom"
)

// DayLayout is the ISO calendar date format used for per-day keys and date filters.
const DayLayout = "2006-01-02"

// Expense is a committed ledger record.
//
// AmountInBase is computed once at write time (Amount × FXRateToBase) and never
// recomputed on read.
type Expense struct {
	ID     ExpenseID
	TripID TripID

	CreatedByUserID UserID
	OwnerUserID     UserID
	PaidByUserID    UserID

	Amount       decimal.Decimal
	Currency     string
	FXRateToBase decimal.Decimal
	AmountInBase decimal.Decimal

	Category string
	Note     *string

	SplitMode          SplitMode
	SplitWith          []UserID
	CustomSplitAmounts map[UserID]decimal.Decimal // nil unless SplitMode is custom

	// ParticipantsPinned is false when SplitWith was defaulted to the trip's full
	// membership; such expenses re-resolve their population on every edit that
	// leaves participants unspecified.
	ParticipantsPinned bool

	// ExpenseTime keeps the offset it was recorded with; Day() depends on it.
	ExpenseTime time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Day is the ISO calendar date of the expense in the offset it was recorded with.
func (e Expense) Day() string { return e.ExpenseTime.Format(DayLayout) }

// Clone returns a deep copy safe to hand across component boundaries.
func (e Expense) Clone() Expense {
	out := e
	if e.Note != nil {
		v := *e.Note
		out.Note = &v
	}
	out.SplitWith = append([]UserID(nil), e.SplitWith...)
	if e.CustomSplitAmounts != nil {
		out.CustomSplitAmounts = make(map[UserID]decimal.Decimal, len(e.CustomSplitAmounts))
		for k, v := range e.CustomSplitAmounts {
			out.CustomSplitAmounts[k] = v
		}
	}
	return out
}
