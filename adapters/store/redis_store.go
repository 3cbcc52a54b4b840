package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/creator-ledger/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client         redis.UniversalClient
	prefix         string
	consumedPrefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client:         client,
		prefix:         "creator-ledger:invalidated:",
		consumedPrefix: "creator-ledger:consumed:",
	}
}

var _ ports.RevocationStore = (*RedisStore)(nil)

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	// Set key with expiration
	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	// Check if key exists
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

// ConsumeOnce records key with SET NX and reports whether it already existed
func (s *RedisStore) ConsumeOnce(ctx context.Context, key string, expiry time.Duration) (bool, error) {
	set, err := s.client.SetNX(ctx, s.consumedPrefix+key, "1", expiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record consumed key: %w", err)
	}

	return !set, nil
}
