package idempotency

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresStore relies on table processed_events(event_id PRIMARY KEY, created_at).
type postgresStore struct {
	pool *pgxpool.Pool
}

func newPostgresStore(pool *pgxpool.Pool) *postgresStore {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Check(ctx context.Context, eventID string) (bool, error) {
	const q = `INSERT INTO processed_events (event_id, created_at)
	           VALUES ($1, now())
	           ON CONFLICT (event_id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, q, eventID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}

func (s *postgresStore) Release(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM processed_events WHERE event_id = $1`, eventID)
	return err
}
