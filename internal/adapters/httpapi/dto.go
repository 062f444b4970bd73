package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/expenses"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/patch"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

type createTripRequest struct {
	Name         string              `json:"name"`
	StartDate    *openapi_types.Date `json:"start_date,omitempty"`
	EndDate      *openapi_types.Date `json:"end_date,omitempty"`
	BaseCurrency string              `json:"base_currency"`
}

type tripResponse struct {
	ID           string              `json:"id"`
	OwnerUserID  string              `json:"owner_user_id"`
	Name         string              `json:"name"`
	StartDate    *openapi_types.Date `json:"start_date"`
	EndDate      *openapi_types.Date `json:"end_date"`
	BaseCurrency string              `json:"base_currency"`
	Status       string              `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
}

type tripListResponse struct {
	Trips []tripResponse `json:"trips"`
}

type inviteRequest struct {
	ExpiresInHours nullable.Nullable[int] `json:"expires_in_hours,omitempty"`
}

type inviteResponse struct {
	InviteCode string     `json:"invite_code"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

type joinRequest struct {
	InviteCode string `json:"invite_code"`
}

type joinResponse struct {
	TripID string `json:"trip_id"`
	Status string `json:"status"`
}

type memberResponse struct {
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	NicknameInTrip *string   `json:"nickname_in_trip"`
	JoinedAt       time.Time `json:"joined_at"`
}

type memberListResponse struct {
	Members []memberResponse `json:"members"`
}

type createExpenseRequest struct {
	Amount             decimal.Decimal                   `json:"amount"`
	Currency           string                            `json:"currency"`
	FXRateToBase       *decimal.Decimal                  `json:"fx_rate_to_base,omitempty"`
	Category           string                            `json:"category"`
	ExpenseTime        time.Time                         `json:"expense_time"`
	PaidByUserID       *domain.UserID                    `json:"paid_by_user_id,omitempty"`
	OwnerUserID        *domain.UserID                    `json:"owner_user_id,omitempty"`
	Note               *string                           `json:"note,omitempty"`
	SplitMode          string                            `json:"split_mode,omitempty"`
	SplitWithUserIDs   []domain.UserID                   `json:"split_with_user_ids,omitempty"`
	CustomSplitAmounts map[domain.UserID]decimal.Decimal `json:"custom_split_amounts,omitempty"`
}

// updateExpenseRequest distinguishes absent fields from explicit nulls.
type updateExpenseRequest struct {
	Amount             nullable.Nullable[decimal.Decimal]                   `json:"amount,omitempty"`
	Currency           nullable.Nullable[string]                            `json:"currency,omitempty"`
	FXRateToBase       nullable.Nullable[decimal.Decimal]                   `json:"fx_rate_to_base,omitempty"`
	Category           nullable.Nullable[string]                            `json:"category,omitempty"`
	ExpenseTime        nullable.Nullable[time.Time]                         `json:"expense_time,omitempty"`
	PaidByUserID       nullable.Nullable[domain.UserID]                     `json:"paid_by_user_id,omitempty"`
	OwnerUserID        nullable.Nullable[domain.UserID]                     `json:"owner_user_id,omitempty"`
	Note               nullable.Nullable[string]                            `json:"note,omitempty"`
	SplitMode          nullable.Nullable[string]                            `json:"split_mode,omitempty"`
	SplitWithUserIDs   nullable.Nullable[[]domain.UserID]                   `json:"split_with_user_ids,omitempty"`
	CustomSplitAmounts nullable.Nullable[map[domain.UserID]decimal.Decimal] `json:"custom_split_amounts,omitempty"`
}

type expenseResponse struct {
	ID                 string                     `json:"id"`
	TripID             string                     `json:"trip_id"`
	CreatedByUserID    string                     `json:"created_by_user_id"`
	OwnerUserID        string                     `json:"owner_user_id"`
	PaidByUserID       string                     `json:"paid_by_user_id"`
	Amount             decimal.Decimal            `json:"amount"`
	Currency           string                     `json:"currency"`
	FXRateToBase       decimal.Decimal            `json:"fx_rate_to_base"`
	AmountInBase       decimal.Decimal            `json:"amount_in_base"`
	Category           string                     `json:"category"`
	Note               *string                    `json:"note"`
	SplitMode          string                     `json:"split_mode"`
	SplitWithUserIDs   []string                   `json:"split_with_user_ids"`
	CustomSplitAmounts map[string]decimal.Decimal `json:"custom_split_amounts"`
	ExpenseTime        time.Time                  `json:"expense_time"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

type expenseListResponse struct {
	Expenses []expenseResponse `json:"expenses"`
}

type summaryResponse struct {
	TotalSpendingInBase     decimal.Decimal            `json:"total_spending_in_base"`
	TotalSpendingByMember   map[string]decimal.Decimal `json:"total_spending_by_member"`
	TotalSpendingByCategory map[string]decimal.Decimal `json:"total_spending_by_category"`
	TotalSpendingByDay      map[string]decimal.Decimal `json:"total_spending_by_day"`
}

func toTripResponse(t domain.Trip) tripResponse {
	return tripResponse{
		ID:           string(t.ID),
		OwnerUserID:  string(t.OwnerUserID),
		Name:         t.Name,
		StartDate:    toDate(t.StartDate),
		EndDate:      toDate(t.EndDate),
		BaseCurrency: t.BaseCurrency,
		Status:       string(t.Status),
		CreatedAt:    t.CreatedAt,
	}
}

func toMemberResponse(m domain.TripMember) memberResponse {
	return memberResponse{
		UserID:         string(m.UserID),
		Role:           string(m.Role),
		NicknameInTrip: m.Nickname,
		JoinedAt:       m.JoinedAt,
	}
}

func toExpenseResponse(e domain.Expense) expenseResponse {
	out := expenseResponse{
		ID:               string(e.ID),
		TripID:           string(e.TripID),
		CreatedByUserID:  string(e.CreatedByUserID),
		OwnerUserID:      string(e.OwnerUserID),
		PaidByUserID:     string(e.PaidByUserID),
		Amount:           e.Amount,
		Currency:         e.Currency,
		FXRateToBase:     e.FXRateToBase,
		AmountInBase:     e.AmountInBase,
		Category:         e.Category,
		Note:             e.Note,
		SplitMode:        string(e.SplitMode),
		SplitWithUserIDs: make([]string, 0, len(e.SplitWith)),
		ExpenseTime:      e.ExpenseTime,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	for _, id := range e.SplitWith {
		out.SplitWithUserIDs = append(out.SplitWithUserIDs, string(id))
	}
	if e.CustomSplitAmounts != nil {
		out.CustomSplitAmounts = make(map[string]decimal.Decimal, len(e.CustomSplitAmounts))
		for k, v := range e.CustomSplitAmounts {
			out.CustomSplitAmounts[string(k)] = v
		}
	}
	return out
}

func toSummaryResponse(s domain.Summary) summaryResponse {
	out := summaryResponse{
		TotalSpendingInBase:     s.Total,
		TotalSpendingByMember:   make(map[string]decimal.Decimal, len(s.ByMember)),
		TotalSpendingByCategory: s.ByCategory,
		TotalSpendingByDay:      s.ByDay,
	}
	for k, v := range s.ByMember {
		out.TotalSpendingByMember[string(k)] = v
	}
	if out.TotalSpendingByCategory == nil {
		out.TotalSpendingByCategory = map[string]decimal.Decimal{}
	}
	if out.TotalSpendingByDay == nil {
		out.TotalSpendingByDay = map[string]decimal.Decimal{}
	}
	return out
}

func (req updateExpenseRequest) toInput() expenses.UpdateExpenseInput {
	return expenses.UpdateExpenseInput{
		Amount:             optional(req.Amount),
		Currency:           optional(req.Currency),
		FXRateToBase:       optional(req.FXRateToBase),
		Category:           optional(req.Category),
		ExpenseTime:        optional(req.ExpenseTime),
		PaidByUserID:       optional(req.PaidByUserID),
		OwnerUserID:        optional(req.OwnerUserID),
		Note:               optional(req.Note),
		SplitMode:          optional(req.SplitMode),
		SplitWith:          optional(req.SplitWithUserIDs),
		CustomSplitAmounts: optional(req.CustomSplitAmounts),
	}
}

// optional converts a wire tri-state into the service's patch representation.
func optional[T any](n nullable.Nullable[T]) patch.Optional[T] {
	switch {
	case !n.IsSpecified():
		return patch.Unspecified[T]()
	case n.IsNull():
		return patch.Null[T]()
	default:
		v, _ := n.Get()
		return patch.Some(v)
	}
}

func toDate(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

func fromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}
