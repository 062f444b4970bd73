package memberrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/memberrepo"
)

// Repo is a Postgres implementation of memberrepo.Repository.
// Join order is the insertion order of trip_members rows.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Add(ctx context.Context, m domain.TripMember) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(m.TripID))
	if err != nil {
		return memberrepo.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO trip_members (trip_id, user_id, role, nickname, joined_at)
		SELECT t.id, $2::text, $3::text, $4::text, $5::timestamptz
		FROM trips t
		WHERE t.external_id = $1
	`,
		tripUUID,
		string(m.UserID),
		string(m.Role),
		m.Nickname,
		m.JoinedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "trip_members_trip_user_unique" {
			return memberrepo.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		// Parent trip does not exist.
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, trip domain.TripID, user domain.UserID) (domain.TripMember, error) {
	if r.pool == nil {
		return domain.TripMember{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(trip))
	if err != nil {
		return domain.TripMember{}, memberrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT t.external_id, m.user_id, m.role, m.nickname, m.joined_at
		FROM trip_members m
		JOIN trips t ON t.id = m.trip_id
		WHERE t.external_id = $1 AND m.user_id = $2
	`, tripUUID, string(user))
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripMember{}, memberrepo.ErrNotFound
		}
		return domain.TripMember{}, err
	}
	return m, nil
}

func (r *Repo) Remove(ctx context.Context, trip domain.TripID, user domain.UserID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(trip))
	if err != nil {
		return memberrepo.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM trip_members
		WHERE trip_id = (SELECT id FROM trips WHERE external_id = $1)
		  AND user_id = $2
	`, tripUUID, string(user))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) ListByTrip(ctx context.Context, trip domain.TripID) ([]domain.TripMember, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(trip))
	if err != nil {
		return []domain.TripMember{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT t.external_id, m.user_id, m.role, m.nickname, m.joined_at
		FROM trip_members m
		JOIN trips t ON t.id = m.trip_id
		WHERE t.external_id = $1
		ORDER BY m.id ASC
	`, tripUUID)
	if err != nil {
		return nil, err
	}
	return collectMembers(rows)
}

func (r *Repo) ListByUser(ctx context.Context, user domain.UserID) ([]domain.TripMember, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT t.external_id, m.user_id, m.role, m.nickname, m.joined_at
		FROM trip_members m
		JOIN trips t ON t.id = m.trip_id
		WHERE m.user_id = $1
		ORDER BY m.joined_at ASC, m.id ASC
	`, string(user))
	if err != nil {
		return nil, err
	}
	return collectMembers(rows)
}

func collectMembers(rows pgx.Rows) ([]domain.TripMember, error) {
	defer rows.Close()
	out := make([]domain.TripMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMember(row pgx.Row) (domain.TripMember, error) {
	var (
		tripID   uuid.UUID
		userID   string
		role     string
		nickname *string
		joinedAt time.Time
	)
	if err := row.Scan(&tripID, &userID, &role, &nickname, &joinedAt); err != nil {
		return domain.TripMember{}, err
	}
	return domain.TripMember{
		TripID:   domain.TripID(tripID.String()),
		UserID:   domain.UserID(userID),
		Role:     domain.MemberRole(role),
		Nickname: nickname,
		JoinedAt: joinedAt.UTC(),
	}, nil
}
