package ports

import (
	"context"
	"time"
)

// RevocationStore remembers revoked refresh IDs and consumed single-use keys
// until they expire
type RevocationStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)

	// ConsumeOnce records key for expiry and reports whether it was already recorded
	ConsumeOnce(ctx context.Context, key string, expiry time.Duration) (bool, error)
}
