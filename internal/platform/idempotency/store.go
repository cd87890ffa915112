// Package idempotency de-duplicates event deliveries by event id.
//
// Primary backend: Redis SETNX with TTL (REDIS_URL).
// Fallback: Postgres INSERT ... ON CONFLICT on the shared pool.
// If neither is available, an in-memory store is used (development only).
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store checks whether an event has already been processed and marks it.
type Store interface {
	// Check returns true if eventID was already processed.
	// If not seen, it atomically marks it as processed.
	Check(ctx context.Context, eventID string) (duplicate bool, err error)
	// Release forgets eventID so a failed delivery can be processed again.
	Release(ctx context.Context, eventID string) error
}

type Options struct {
	RedisURL string
	Pool     *pgxpool.Pool
	TTL      time.Duration
	// Prefix namespaces Redis keys, e.g. "social:notify:".
	Prefix string
	IsProd bool
}

// NewStore creates the best available store: Redis > Postgres > in-memory.
// In production the in-memory fallback is refused.
func NewStore(opts Options) (Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.RedisURL != "" {
		return newRedisStore(opts.RedisURL, opts.Prefix, opts.TTL), nil
	}
	if opts.Pool != nil {
		return newPostgresStore(opts.Pool), nil
	}
	if opts.IsProd {
		return nil, errors.New("production requires REDIS_URL or DATABASE_URL for idempotency; in-memory store is not allowed")
	}
	return newMemoryStore(opts.TTL), nil
}
