package domain

import "github.com/shopspring/decimal"

// Summary aggregates base-currency spending.
type Summary struct {
	Total      decimal.Decimal
	ByMember   map[UserID]decimal.Decimal // keyed by payer
	ByCategory map[string]decimal.Decimal
	ByDay      map[string]decimal.Decimal // keyed by Expense.Day()
}

// Summarize accumulates AmountInBase in a single pass. Keys without a contribution
// are never present.
func Summarize(expenses []Expense) Summary {
	s := Summary{
		Total:      decimal.Zero,
		ByMember:   map[UserID]decimal.Decimal{},
		ByCategory: map[string]decimal.Decimal{},
		ByDay:      map[string]decimal.Decimal{},
	}
	for _, e := range expenses {
		v := e.AmountInBase
		s.Total = s.Total.Add(v)
		s.ByMember[e.PaidByUserID] = s.ByMember[e.PaidByUserID].Add(v)
		s.ByCategory[e.Category] = s.ByCategory[e.Category].Add(v)
		day := e.Day()
		s.ByDay[day] = s.ByDay[day].Add(v)
	}
	return s
}
