package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/expenses"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

// IdempotencyKeyHeader makes expense creation safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

func (s *Server) CreateExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req createExpenseRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeValidationError(w, r, "", err.Error())
		return
	}
	tripID := tripIDParam(r)

	idem, err := s.beginIdempotent(r, caller, "/trips/"+string(tripID)+"/expenses", req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if idem.conflict {
		writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
		return
	}
	if idem.replay != nil {
		w.Header().Set("Content-Type", idem.replay.ContentType)
		w.WriteHeader(idem.replay.StatusCode)
		_, _ = w.Write(idem.replay.Body)
		return
	}

	e, err := s.Expenses.Create(r.Context(), tripID, caller, expenses.CreateExpenseInput{
		Amount:             req.Amount,
		Currency:           req.Currency,
		FXRateToBase:       req.FXRateToBase,
		Category:           req.Category,
		ExpenseTime:        req.ExpenseTime,
		PaidByUserID:       req.PaidByUserID,
		OwnerUserID:        req.OwnerUserID,
		Note:               req.Note,
		SplitMode:          req.SplitMode,
		SplitWith:          req.SplitWithUserIDs,
		CustomSplitAmounts: req.CustomSplitAmounts,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := toExpenseResponse(e)
	s.finishIdempotent(r, idem, http.StatusCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) ListExpenses(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	f, ok := bindListFilter(w, r)
	if !ok {
		return
	}
	es, err := s.Expenses.List(r.Context(), tripIDParam(r), caller, f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := expenseListResponse{Expenses: make([]expenseResponse, 0, len(es))}
	for _, e := range es {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateExpense rejects unknown fields so a misspelled key is never silently ignored.
func (s *Server) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req updateExpenseRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeValidationError(w, r, "", err.Error())
		return
	}
	id := domain.ExpenseID(chi.URLParam(r, "expenseId"))

	e, err := s.Expenses.Update(r.Context(), tripIDParam(r), id, caller, req.toInput())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	id := domain.ExpenseID(chi.URLParam(r, "expenseId"))
	if err := s.Expenses.Delete(r.Context(), tripIDParam(r), id, caller); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	f, ok := bindListFilter(w, r)
	if !ok {
		return
	}
	sum, err := s.Expenses.Summarize(r.Context(), tripIDParam(r), caller, f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}

func (s *Server) MySummary(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	sum, err := s.Expenses.SummarizeMine(r.Context(), tripIDParam(r), caller)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}

// bindListFilter reads from, to, paid_by and category. Dates are YYYY-MM-DD.
func bindListFilter(w http.ResponseWriter, r *http.Request) (expenses.ListFilter, bool) {
	var (
		from, to *openapi_types.Date
		paidBy   *string
		category *string
	)
	q := r.URL.Query()
	// An empty value (?category=) means the filter is unset.
	for name, vs := range q {
		if len(vs) == 1 && strings.TrimSpace(vs[0]) == "" {
			q.Del(name)
		}
	}
	for _, p := range []struct {
		name string
		dest any
	}{
		{"from", &from},
		{"to", &to},
		{"paid_by", &paidBy},
		{"category", &category},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dest); err != nil {
			writeValidationError(w, r, p.name, err.Error())
			return expenses.ListFilter{}, false
		}
	}

	f := expenses.ListFilter{From: fromDate(from), To: fromDate(to), Category: category}
	if paidBy != nil {
		id := domain.UserID(*paidBy)
		f.PaidBy = &id
	}
	return f, true
}
