package inviterepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/ports/out/inviterepo"
)

// Repo is a Postgres implementation of inviterepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Issue(ctx context.Context, inv domain.Invite) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	inviteUUID, err := uuid.Parse(string(inv.ID))
	if err != nil {
		return fmt.Errorf("invalid invite id: %w", err)
	}
	tripUUID, err := uuid.Parse(string(inv.TripID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var tripPK int64
		err := tx.QueryRow(ctx, `SELECT id FROM trips WHERE external_id = $1 FOR UPDATE`, tripUUID).Scan(&tripPK)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("issue invite: trip %s not found", inv.TripID)
			}
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE invites SET is_active = false
			WHERE trip_id = $1 AND is_active
		`, tripPK); err != nil {
			return err
		}

		var expiresAt *time.Time
		if inv.ExpiresAt != nil {
			v := inv.ExpiresAt.UTC()
			expiresAt = &v
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO invites (external_id, trip_id, code, expires_at, is_active, created_by_user_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			inviteUUID,
			tripPK,
			inv.Code,
			expiresAt,
			inv.IsActive,
			string(inv.CreatedByUserID),
			inv.CreatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				switch pe.ConstraintName {
				case "invites_code_unique", "invites_external_id_unique":
					return inviterepo.ErrAlreadyExists
				}
			}
			return err
		}
		return nil
	})
}

func (r *Repo) GetByCode(ctx context.Context, code string) (domain.Invite, error) {
	if r.pool == nil {
		return domain.Invite{}, errors.New("nil postgres pool")
	}

	var (
		id        uuid.UUID
		tripID    uuid.UUID
		gotCode   string
		expiresAt *time.Time
		active    bool
		createdBy string
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT i.external_id, t.external_id, i.code, i.expires_at, i.is_active, i.created_by_user_id, i.created_at
		FROM invites i
		JOIN trips t ON t.id = i.trip_id
		WHERE i.code = $1
	`, code).Scan(&id, &tripID, &gotCode, &expiresAt, &active, &createdBy, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invite{}, inviterepo.ErrNotFound
		}
		return domain.Invite{}, err
	}
	if expiresAt != nil {
		v := expiresAt.UTC()
		expiresAt = &v
	}
	return domain.Invite{
		ID:              domain.InviteID(id.String()),
		TripID:          domain.TripID(tripID.String()),
		Code:            gotCode,
		ExpiresAt:       expiresAt,
		IsActive:        active,
		CreatedAt:       createdAt.UTC(),
		CreatedByUserID: domain.UserID(createdBy),
	}, nil
}
