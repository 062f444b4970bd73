package expenses

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/patch"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

type CreateExpenseInput struct {
	Amount   decimal.Decimal
	Currency string
	// FXRateToBase is required unless Currency is the trip's base currency.
	FXRateToBase *decimal.Decimal
	Category     string
	ExpenseTime  time.Time

	// PaidByUserID and OwnerUserID default to the caller.
	PaidByUserID *domain.UserID
	OwnerUserID  *domain.UserID
	Note         *string

	// SplitMode defaults to equal.
	SplitMode          string
	SplitWith          []domain.UserID
	CustomSplitAmounts map[domain.UserID]decimal.Decimal
}

// UpdateExpenseInput is a partial update. Null clears optional fields (note, rate,
// participants, custom amounts) and is rejected for required ones.
type UpdateExpenseInput struct {
	Amount       patch.Optional[decimal.Decimal]
	Currency     patch.Optional[string]
	FXRateToBase patch.Optional[decimal.Decimal]
	Category     patch.Optional[string]
	ExpenseTime  patch.Optional[time.Time]
	PaidByUserID patch.Optional[domain.UserID]
	OwnerUserID  patch.Optional[domain.UserID]
	Note         patch.Optional[string]

	SplitMode          patch.Optional[string]
	SplitWith          patch.Optional[[]domain.UserID]
	CustomSplitAmounts patch.Optional[map[domain.UserID]decimal.Decimal]
}

// splitOnly reports whether every specified field may be changed by a member who
// did not create the expense.
func (in UpdateExpenseInput) splitOnly() bool {
	return !in.Amount.IsSpecified() &&
		!in.Currency.IsSpecified() &&
		!in.FXRateToBase.IsSpecified() &&
		!in.Category.IsSpecified() &&
		!in.ExpenseTime.IsSpecified() &&
		!in.PaidByUserID.IsSpecified() &&
		!in.Note.IsSpecified()
}

// ListFilter narrows a trip's expenses. All set fields must match.
// From and To are inclusive calendar dates compared against Expense.Day().
type ListFilter struct {
	From      *time.Time
	To        *time.Time
	PaidBy    *domain.UserID
	Category  *string
	CreatedBy *domain.UserID
}

func (f ListFilter) match(e domain.Expense) bool {
	day := e.Day()
	if f.From != nil && day < f.From.Format(domain.DayLayout) {
		return false
	}
	if f.To != nil && day > f.To.Format(domain.DayLayout) {
		return false
	}
	if f.PaidBy != nil && e.PaidByUserID != *f.PaidBy {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.CreatedBy != nil && e.CreatedByUserID != *f.CreatedBy {
		return false
	}
	return true
}
