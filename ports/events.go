package ports

import (
	"context"

	"github.com/layer-3/creator-ledger/core"
)

// EventPublisher publishes events to notify other instances and downstream consumers
type EventPublisher interface {
	PublishLogout(ctx context.Context, address string, tokenID string) error
	PublishSignIn(ctx context.Context, identity *core.Identity, created bool) error
	PublishClaimSubmitted(ctx context.Context, claim *core.Claim, duplicates int) error
	PublishClaimReviewed(ctx context.Context, claim *core.Claim) error
}
