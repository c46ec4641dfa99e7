package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Friiyous/reseau-social/internal/metrics"
)

// RedisStore holds the Redis connection used for rate limiting and IP blocks.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying client. A nil store yields a nil client.
func (s *RedisStore) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.RedisLatency.Observe(time.Since(start).Seconds())
	}()
	return s.client.Ping(ctx).Err()
}
