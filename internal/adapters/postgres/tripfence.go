package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/semaphore"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/domain"
)

// TripFence serializes writers of one trip across every API process that shares the
// database. Each holder pins a pooled connection for a session advisory lock keyed on
// the trip id. At most half the pool may be pinned so queries made while holding the
// fence always find a free connection.
type TripFence struct {
	pool *pgxpool.Pool
	sem  *semaphore.Weighted
}

func NewTripFence(pool *pgxpool.Pool) *TripFence {
	n := int64(pool.Config().MaxConns / 2)
	if n < 1 {
		n = 1
	}
	return &TripFence{pool: pool, sem: semaphore.NewWeighted(n)}
}

func (f *TripFence) Acquire(ctx context.Context, id domain.TripID) (func(), error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		f.sem.Release(1)
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, string(id)); err != nil {
		// A cancelled wait leaves the session state unknown.
		_ = conn.Conn().Close(context.Background())
		conn.Release()
		f.sem.Release(1)
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	return func() {
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, string(id)); err != nil {
			// Closing the session drops any advisory lock it still holds.
			_ = conn.Conn().Close(context.Background())
		}
		conn.Release()
		f.sem.Release(1)
	}, nil
}
