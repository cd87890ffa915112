package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func newRedisStore(url, prefix string, ttl time.Duration) *redisStore {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	if prefix == "" {
		prefix = "idempotent:"
	}
	return &redisStore{client: redis.NewClient(opts), prefix: prefix, ttl: ttl}
}

func (s *redisStore) Check(ctx context.Context, eventID string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.prefix+eventID, 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	// SetNX reports true when the key was created, i.e. first delivery.
	return !set, nil
}

func (s *redisStore) Release(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, s.prefix+eventID).Err()
}
