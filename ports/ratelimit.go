package ports

import (
	"context"
	"time"
)

// Limit is a fixed window quota
type Limit struct {
	Max    int
	Window time.Duration
}

// RateLimitResult is the outcome of a single check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimitStore counts requests per key in fixed windows.
// A check at the limit reports Allowed=false without counting the request.
type RateLimitStore interface {
	Check(ctx context.Context, key string, limit Limit) (RateLimitResult, error)
}
