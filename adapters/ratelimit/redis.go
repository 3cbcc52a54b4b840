package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/creator-ledger/ports"
)

// checkScript opens a window on first use and refuses to count past the limit.
// Returns {allowed, count, ttl_ms}.
var checkScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if count >= limit then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
    ttl = tonumber(ARGV[2])
  end
  return {0, count, ttl}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end
return {1, count, ttl}
`)

// RedisStore shares windows between instances through Redis
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.RateLimitStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis backed store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "creator-ledger:ratelimit:",
		now:    time.Now,
	}
}

// Check counts a request against key atomically
func (s *RedisStore) Check(ctx context.Context, key string, limit ports.Limit) (ports.RateLimitResult, error) {
	res, err := checkScript.Run(ctx, s.client, []string{s.prefix + key}, limit.Max, limit.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return ports.RateLimitResult{}, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if len(res) != 3 {
		return ports.RateLimitResult{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	allowed, count, ttl := res[0] == 1, int(res[1]), time.Duration(res[2])*time.Millisecond

	return ports.RateLimitResult{
		Allowed:   allowed,
		Remaining: max(limit.Max-count, 0),
		ResetAt:   s.now().Add(ttl),
	}, nil
}
