package expenserepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	postgres "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/expenserepo"
)

// Repo is a Postgres implementation of expenserepo.Repository.
//
// Money columns are numeric and cross the wire as text, so no value ever passes
// through a float. Insertion order is the serial primary key.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectColumns = `
	e.external_id,
	t.external_id,
	e.created_by_user_id,
	e.owner_user_id,
	e.paid_by_user_id,
	e.amount::text,
	e.currency,
	e.fx_rate_to_base::text,
	e.amount_in_base::text,
	e.category,
	e.note,
	e.split_mode,
	e.split_with,
	e.custom_split_amounts::text,
	e.participants_pinned,
	e.expense_time,
	e.expense_tz_offset_minutes,
	e.created_at,
	e.updated_at
`

func (r *Repo) Append(ctx context.Context, e domain.Expense) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	row, err := toRow(e)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO expenses (
			external_id,
			trip_id,
			created_by_user_id,
			owner_user_id,
			paid_by_user_id,
			amount,
			currency,
			fx_rate_to_base,
			amount_in_base,
			category,
			note,
			split_mode,
			split_with,
			custom_split_amounts,
			participants_pinned,
			expense_time,
			expense_tz_offset_minutes,
			created_at,
			updated_at
		)
		SELECT $1::uuid, t.id, $3::text, $4::text, $5::text, $6::numeric, $7::text, $8::numeric, $9::numeric,
		       $10::text, $11::text, $12::text, $13::text[], $14::jsonb, $15::boolean,
		       $16::timestamptz, $17::integer, $18::timestamptz, $19::timestamptz
		FROM trips t
		WHERE t.external_id = $2
	`, row.args()...)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "expenses_external_id_unique" {
			return expenserepo.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("append expense: trip %s not found", e.TripID)
	}
	return nil
}

func (r *Repo) Replace(ctx context.Context, e domain.Expense) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	row, err := toRow(e)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE expenses
		SET created_by_user_id = $3,
		    owner_user_id = $4,
		    paid_by_user_id = $5,
		    amount = $6::numeric,
		    currency = $7,
		    fx_rate_to_base = $8::numeric,
		    amount_in_base = $9::numeric,
		    category = $10,
		    note = $11,
		    split_mode = $12,
		    split_with = $13,
		    custom_split_amounts = $14::jsonb,
		    participants_pinned = $15,
		    expense_time = $16,
		    expense_tz_offset_minutes = $17,
		    created_at = $18,
		    updated_at = $19
		WHERE external_id = $1
		  AND trip_id = (SELECT id FROM trips WHERE external_id = $2)
	`, row.args()...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return expenserepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, trip domain.TripID, id domain.ExpenseID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, expenseUUID, ok := parseIDs(trip, id)
	if !ok {
		return expenserepo.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM expenses
		WHERE external_id = $2
		  AND trip_id = (SELECT id FROM trips WHERE external_id = $1)
	`, tripUUID, expenseUUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return expenserepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, trip domain.TripID, id domain.ExpenseID) (domain.Expense, error) {
	if r.pool == nil {
		return domain.Expense{}, errors.New("nil postgres pool")
	}
	tripUUID, expenseUUID, ok := parseIDs(trip, id)
	if !ok {
		return domain.Expense{}, expenserepo.ErrNotFound
	}

	e, err := scanExpense(r.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM expenses e
		JOIN trips t ON t.id = e.trip_id
		WHERE t.external_id = $1 AND e.external_id = $2
	`, tripUUID, expenseUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Expense{}, expenserepo.ErrNotFound
		}
		return domain.Expense{}, err
	}
	return e, nil
}

func (r *Repo) ListByTrip(ctx context.Context, trip domain.TripID) ([]domain.Expense, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(trip))
	if err != nil {
		return []domain.Expense{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM expenses e
		JOIN trips t ON t.id = e.trip_id
		WHERE t.external_id = $1
		ORDER BY e.id ASC
	`, tripUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- helpers ---

type expenseRow struct {
	id, trip     uuid.UUID
	e            domain.Expense
	splitWith    []string
	custom       *string
	offsetMinute int
}

func toRow(e domain.Expense) (expenseRow, error) {
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return expenseRow{}, fmt.Errorf("invalid expense id: %w", err)
	}
	trip, err := uuid.Parse(string(e.TripID))
	if err != nil {
		return expenseRow{}, fmt.Errorf("invalid trip id: %w", err)
	}

	split := make([]string, len(e.SplitWith))
	for i, u := range e.SplitWith {
		split[i] = string(u)
	}

	var custom *string
	if e.CustomSplitAmounts != nil {
		b, err := json.Marshal(e.CustomSplitAmounts)
		if err != nil {
			return expenseRow{}, fmt.Errorf("encode custom split amounts: %w", err)
		}
		s := string(b)
		custom = &s
	}

	_, offset := e.ExpenseTime.Zone()
	return expenseRow{id: id, trip: trip, e: e, splitWith: split, custom: custom, offsetMinute: offset / 60}, nil
}

func (r expenseRow) args() []any {
	e := r.e
	return []any{
		r.id,
		r.trip,
		string(e.CreatedByUserID),
		string(e.OwnerUserID),
		string(e.PaidByUserID),
		e.Amount.String(),
		e.Currency,
		e.FXRateToBase.String(),
		e.AmountInBase.String(),
		e.Category,
		e.Note,
		string(e.SplitMode),
		r.splitWith,
		r.custom,
		e.ParticipantsPinned,
		e.ExpenseTime.UTC(),
		r.offsetMinute,
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	}
}

func scanExpense(row pgx.Row) (domain.Expense, error) {
	var (
		id, trip                 uuid.UUID
		createdBy, owner, paidBy string
		amount, rate, inBase     string
		currency, category, mode string
		note, custom             *string
		splitWith                []string
		pinned                   bool
		expenseTime              time.Time
		offsetMinutes            int
		createdAt, updatedAt     time.Time
	)
	if err := row.Scan(
		&id,
		&trip,
		&createdBy,
		&owner,
		&paidBy,
		&amount,
		&currency,
		&rate,
		&inBase,
		&category,
		&note,
		&mode,
		&splitWith,
		&custom,
		&pinned,
		&expenseTime,
		&offsetMinutes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Expense{}, err
	}

	e := domain.Expense{
		ID:                 domain.ExpenseID(id.String()),
		TripID:             domain.TripID(trip.String()),
		CreatedByUserID:    domain.UserID(createdBy),
		OwnerUserID:        domain.UserID(owner),
		PaidByUserID:       domain.UserID(paidBy),
		Currency:           currency,
		Category:           category,
		Note:               note,
		SplitMode:          domain.SplitMode(mode),
		ParticipantsPinned: pinned,
		ExpenseTime:        expenseTime.In(time.FixedZone("", offsetMinutes*60)),
		CreatedAt:          createdAt.UTC(),
		UpdatedAt:          updatedAt.UTC(),
	}

	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Expense{}, fmt.Errorf("decode amount: %w", err)
	}
	if e.FXRateToBase, err = decimal.NewFromString(rate); err != nil {
		return domain.Expense{}, fmt.Errorf("decode fx_rate_to_base: %w", err)
	}
	if e.AmountInBase, err = decimal.NewFromString(inBase); err != nil {
		return domain.Expense{}, fmt.Errorf("decode amount_in_base: %w", err)
	}

	e.SplitWith = make([]domain.UserID, len(splitWith))
	for i, u := range splitWith {
		e.SplitWith[i] = domain.UserID(u)
	}
	if custom != nil {
		if err := json.Unmarshal([]byte(*custom), &e.CustomSplitAmounts); err != nil {
			return domain.Expense{}, fmt.Errorf("decode custom_split_amounts: %w", err)
		}
	}
	return e, nil
}

func parseIDs(trip domain.TripID, id domain.ExpenseID) (uuid.UUID, uuid.UUID, bool) {
	t, err := uuid.Parse(string(trip))
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	e, err := uuid.Parse(string(id))
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	return t, e, true
}
