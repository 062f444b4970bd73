// Package expenses is the expense ledger: the only writer of a trip's expense
// collection.
//
// Every write holds the trip's write lock from the first membership read to the
// commit, so a reader never observes an expense whose split no longer validates
// against the state it was checked with. Reads hold the trip's read lock.
package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/app/members"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/triplock"
	clockport "github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/events"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/expenserepo"
)

type Deps struct {
	Expenses expenserepo.Repository
	Members  *members.Service
	Locks    *triplock.Registry
	Clock    clockport.Clock

	// Events defaults to events.Nop.
	Events events.Publisher
	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// PinDefaultParticipants stores a defaulted split population as if the caller had
	// listed it explicitly, so later edits do not re-resolve it against membership.
	PinDefaultParticipants bool
}

type Service struct {
	expenses expenserepo.Repository
	registry *members.Service
	locks    *triplock.Registry
	clk      clockport.Clock
	events   events.Publisher
	log      *slog.Logger

	pinDefaults  bool
	newExpenseID func() domain.ExpenseID
}

func NewService(d Deps) *Service {
	s := &Service{
		expenses:    d.Expenses,
		registry:    d.Members,
		locks:       d.Locks,
		clk:         d.Clock,
		events:      d.Events,
		log:         d.Logger,
		pinDefaults: d.PinDefaultParticipants,
		newExpenseID: func() domain.ExpenseID {
			return domain.ExpenseID(uuid.NewString())
		},
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = logging.Component(s.log, "expenses")
	return s
}

// SetNewExpenseIDForTest overrides expense ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewExpenseIDForTest(fn func() domain.ExpenseID) {
	if fn != nil {
		s.newExpenseID = fn
	}
}

// candidate is an expense before validation: raw inputs merged over any prior record.
type candidate struct {
	amount       decimal.Decimal
	currency     string
	suppliedRate *decimal.Decimal
	category     string
	expenseTime  time.Time
	paidBy       domain.UserID
	owner        domain.UserID
	note         *string

	splitMode string
	// splitWith nil means default to the current membership.
	splitWith []domain.UserID
	custom    map[domain.UserID]decimal.Decimal
}

// Create validates and appends a new expense. Payer and owner default to the caller.
func (s *Service) Create(ctx context.Context, tripID domain.TripID, caller domain.UserID, in CreateExpenseInput) (domain.Expense, error) {
	trip, err := s.registry.Trip(ctx, tripID)
	if err != nil {
		return domain.Expense{}, err
	}

	e, err := func() (domain.Expense, error) {
		unlock, err := s.locks.Lock(ctx, tripID)
		if err != nil {
			return domain.Expense{}, err
		}
		defer unlock()

		if _, err := s.registry.RequireMember(ctx, tripID, caller); err != nil {
			return domain.Expense{}, err
		}

		c := candidate{
			amount:       in.Amount,
			currency:     in.Currency,
			suppliedRate: in.FXRateToBase,
			category:     in.Category,
			expenseTime:  in.ExpenseTime,
			paidBy:       caller,
			owner:        caller,
			note:         in.Note,
			splitMode:    in.SplitMode,
			splitWith:    in.SplitWith,
			custom:       in.CustomSplitAmounts,
		}
		if in.PaidByUserID != nil {
			c.paidBy = *in.PaidByUserID
		}
		if in.OwnerUserID != nil {
			c.owner = *in.OwnerUserID
		}

		e, err := s.validate(ctx, trip, c)
		if err != nil {
			return domain.Expense{}, err
		}
		now := s.clk.Now()
		e.ID = s.newExpenseID()
		e.TripID = tripID
		e.CreatedByUserID = caller
		e.CreatedAt = now
		e.UpdatedAt = now

		if err := s.expenses.Append(ctx, e); err != nil {
			return domain.Expense{}, fmt.Errorf("append expense: %w", err)
		}
		return e, nil
	}()
	if err != nil {
		return domain.Expense{}, err
	}

	s.publish(ctx, events.ExpenseCreated, trip, caller, e)
	return e, nil
}

// Update merges in over the stored expense and re-runs every create-time check on the
// result. Only the creator may change anything beyond the split fields and owner.
// Either the whole change commits or the stored record is left untouched.
func (s *Service) Update(ctx context.Context, tripID domain.TripID, id domain.ExpenseID, caller domain.UserID, in UpdateExpenseInput) (domain.Expense, error) {
	trip, err := s.registry.Trip(ctx, tripID)
	if err != nil {
		return domain.Expense{}, err
	}

	e, err := func() (domain.Expense, error) {
		unlock, err := s.locks.Lock(ctx, tripID)
		if err != nil {
			return domain.Expense{}, err
		}
		defer unlock()

		if _, err := s.registry.RequireMember(ctx, tripID, caller); err != nil {
			return domain.Expense{}, err
		}
		existing, err := s.load(ctx, tripID, id)
		if err != nil {
			return domain.Expense{}, err
		}
		if existing.CreatedByUserID != caller && !in.splitOnly() {
			return domain.Expense{}, &domain.Error{Kind: domain.KindEditForbidden, Message: "only the creator can edit this expense"}
		}

		c, err := merge(existing, in)
		if err != nil {
			return domain.Expense{}, err
		}
		e, err := s.validate(ctx, trip, c)
		if err != nil {
			return domain.Expense{}, err
		}
		e.ID = existing.ID
		e.TripID = existing.TripID
		e.CreatedByUserID = existing.CreatedByUserID
		e.CreatedAt = existing.CreatedAt
		e.UpdatedAt = s.clk.Now()

		if err := s.expenses.Replace(ctx, e); err != nil {
			if errors.Is(err, expenserepo.ErrNotFound) {
				return domain.Expense{}, expenseNotFound()
			}
			return domain.Expense{}, fmt.Errorf("replace expense: %w", err)
		}
		return e, nil
	}()
	if err != nil {
		return domain.Expense{}, err
	}

	s.publish(ctx, events.ExpenseUpdated, trip, caller, e)
	return e, nil
}

// Delete removes an expense. Only its creator may do so.
func (s *Service) Delete(ctx context.Context, tripID domain.TripID, id domain.ExpenseID, caller domain.UserID) error {
	trip, err := s.registry.Trip(ctx, tripID)
	if err != nil {
		return err
	}

	err = func() error {
		unlock, err := s.locks.Lock(ctx, tripID)
		if err != nil {
			return err
		}
		defer unlock()

		if _, err := s.registry.RequireMember(ctx, tripID, caller); err != nil {
			return err
		}
		existing, err := s.load(ctx, tripID, id)
		if err != nil {
			return err
		}
		if existing.CreatedByUserID != caller {
			return &domain.Error{Kind: domain.KindDeleteForbidden, Message: "only the creator can delete this expense"}
		}
		if err := s.expenses.Remove(ctx, tripID, id); err != nil {
			if errors.Is(err, expenserepo.ErrNotFound) {
				return expenseNotFound()
			}
			return fmt.Errorf("remove expense: %w", err)
		}
		return nil
	}()
	if err != nil {
		return err
	}

	s.publish(ctx, events.ExpenseDeleted, trip, caller, domain.Expense{ID: id, TripID: tripID})
	return nil
}

// List returns the trip's expenses matching f, in insertion order.
func (s *Service) List(ctx context.Context, tripID domain.TripID, caller domain.UserID, f ListFilter) ([]domain.Expense, error) {
	if _, err := s.registry.Trip(ctx, tripID); err != nil {
		return nil, err
	}

	unlock := s.locks.RLock(tripID)
	defer unlock()

	if _, err := s.registry.RequireMember(ctx, tripID, caller); err != nil {
		return nil, err
	}
	if f.Category != nil {
		c := normalizeCategory(*f.Category)
		f.Category = &c
	}

	all, err := s.expenses.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]domain.Expense, 0, len(all))
	for _, e := range all {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Summarize aggregates the expenses List would return for f.
func (s *Service) Summarize(ctx context.Context, tripID domain.TripID, caller domain.UserID, f ListFilter) (domain.Summary, error) {
	items, err := s.List(ctx, tripID, caller, f)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(items), nil
}

// SummarizeMine aggregates the expenses the caller created.
func (s *Service) SummarizeMine(ctx context.Context, tripID domain.TripID, caller domain.UserID) (domain.Summary, error) {
	return s.Summarize(ctx, tripID, caller, ListFilter{CreatedBy: &caller})
}

func (s *Service) load(ctx context.Context, tripID domain.TripID, id domain.ExpenseID) (domain.Expense, error) {
	e, err := s.expenses.Get(ctx, tripID, id)
	if err != nil {
		if errors.Is(err, expenserepo.ErrNotFound) {
			return domain.Expense{}, expenseNotFound()
		}
		return domain.Expense{}, fmt.Errorf("load expense: %w", err)
	}
	return e, nil
}

// validate runs every write-time check against the trip's current membership and
// returns the canonical record. Callers hold the trip write lock.
func (s *Service) validate(ctx context.Context, trip domain.Trip, c candidate) (domain.Expense, error) {
	if !c.amount.IsPositive() {
		return domain.Expense{}, &domain.Error{Kind: domain.KindInvalidAmount, Field: "amount", Message: "amount must be > 0"}
	}
	currency, err := domain.NormalizeCurrency(c.currency)
	if err != nil {
		return domain.Expense{}, err
	}
	rate, err := domain.ResolveRate(currency, trip.BaseCurrency, c.suppliedRate)
	if err != nil {
		return domain.Expense{}, err
	}

	if _, err := s.registry.RequireMemberField(ctx, trip.ID, c.paidBy, "paid_by_user_id"); err != nil {
		return domain.Expense{}, err
	}
	if _, err := s.registry.RequireMemberField(ctx, trip.ID, c.owner, "owner_user_id"); err != nil {
		return domain.Expense{}, err
	}

	category := normalizeCategory(c.category)
	if category == "" {
		return domain.Expense{}, &domain.Error{Kind: domain.KindValidation, Field: "category", Message: "must be non-empty"}
	}
	if c.expenseTime.IsZero() {
		return domain.Expense{}, &domain.Error{Kind: domain.KindValidation, Field: "expense_time", Message: "is required"}
	}

	mode := c.splitMode
	if mode == "" {
		mode = string(domain.SplitModeEqual)
	}
	memberIDs, err := s.registry.MemberIDs(ctx, trip.ID)
	if err != nil {
		return domain.Expense{}, err
	}
	split, err := domain.NormalizeSplit(memberIDs, c.amount, mode, c.splitWith, c.custom)
	if err != nil {
		return domain.Expense{}, err
	}

	return domain.Expense{
		OwnerUserID:        c.owner,
		PaidByUserID:       c.paidBy,
		Amount:             c.amount,
		Currency:           currency,
		FXRateToBase:       rate,
		AmountInBase:       domain.BaseAmount(c.amount, rate),
		Category:           category,
		Note:               c.note,
		SplitMode:          split.Mode,
		SplitWith:          split.Participants,
		CustomSplitAmounts: split.CustomAmounts,
		ParticipantsPinned: !split.Defaulted || s.pinDefaults,
		ExpenseTime:        c.expenseTime,
	}, nil
}

// merge overlays in onto existing.
//
// Unpinned participants are dropped so validate re-resolves them against the current
// membership. A currency change discards the stored rate: the caller must send a new
// one unless the new currency is the trip's base currency.
func merge(existing domain.Expense, in UpdateExpenseInput) (candidate, error) {
	c := candidate{
		amount:      existing.Amount,
		currency:    existing.Currency,
		category:    existing.Category,
		expenseTime: existing.ExpenseTime,
		paidBy:      existing.PaidByUserID,
		owner:       existing.OwnerUserID,
		note:        existing.Note,
		splitMode:   string(existing.SplitMode),
		custom:      existing.CustomSplitAmounts,
	}
	if existing.ParticipantsPinned {
		c.splitWith = existing.SplitWith
	}

	if in.Amount.IsNull() {
		return candidate{}, cannotBeNull("amount")
	}
	c.amount = in.Amount.Or(c.amount)

	currencyChanged := false
	if in.Currency.IsSpecified() {
		if in.Currency.IsNull() {
			return candidate{}, cannotBeNull("currency")
		}
		cur, err := domain.NormalizeCurrency(in.Currency.Value())
		if err != nil {
			return candidate{}, err
		}
		currencyChanged = cur != existing.Currency
		c.currency = cur
	}

	switch {
	case in.FXRateToBase.IsNull():
		c.suppliedRate = nil
	case in.FXRateToBase.IsSpecified():
		v := in.FXRateToBase.Value()
		c.suppliedRate = &v
	case !currencyChanged:
		v := existing.FXRateToBase
		c.suppliedRate = &v
	}

	if in.Category.IsNull() {
		return candidate{}, cannotBeNull("category")
	}
	c.category = in.Category.Or(c.category)

	if in.ExpenseTime.IsNull() {
		return candidate{}, cannotBeNull("expense_time")
	}
	c.expenseTime = in.ExpenseTime.Or(c.expenseTime)

	if in.PaidByUserID.IsNull() {
		return candidate{}, cannotBeNull("paid_by_user_id")
	}
	c.paidBy = in.PaidByUserID.Or(c.paidBy)

	if in.OwnerUserID.IsNull() {
		return candidate{}, cannotBeNull("owner_user_id")
	}
	c.owner = in.OwnerUserID.Or(c.owner)

	if in.Note.IsSpecified() {
		c.note = nil
		if !in.Note.IsNull() {
			v := in.Note.Value()
			c.note = &v
		}
	}

	if in.SplitMode.IsSpecified() {
		c.splitMode = in.SplitMode.Or(string(domain.SplitModeEqual))
	}
	if in.SplitWith.IsSpecified() {
		c.splitWith = in.SplitWith.Or(nil)
	}
	if in.CustomSplitAmounts.IsSpecified() {
		c.custom = in.CustomSplitAmounts.Or(nil)
	}
	return c, nil
}

func (s *Service) publish(ctx context.Context, typ events.Type, trip domain.Trip, actor domain.UserID, e domain.Expense) {
	ev := events.Event{
		Type:       typ,
		TripID:     trip.ID,
		ExpenseID:  e.ID,
		ActorID:    actor,
		OccurredAt: s.clk.Now(),
	}
	if typ != events.ExpenseDeleted {
		ev.AmountInBase = e.AmountInBase.String()
		ev.BaseCurrency = trip.BaseCurrency
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "publish ledger event",
			"type", string(typ),
			logging.FieldTripID, trip.ID,
			logging.FieldExpenseID, e.ID,
			logging.FieldError, err,
		)
	}
}

func normalizeCategory(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func expenseNotFound() *domain.Error {
	return &domain.Error{Kind: domain.KindExpenseNotFound, Field: "expense_id", Message: "expense not found"}
}

func cannotBeNull(field string) *domain.Error {
	return &domain.Error{Kind: domain.KindValidation, Field: field, Message: "cannot be null"}
}
