package events

import (
	"context"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/ports"
	"go.uber.org/zap"
)

// NopPublisher drops events. Used when no Redis stream is configured.
type NopPublisher struct {
	logger *zap.Logger
}

// NewNopPublisher creates a publisher that only logs at debug level
func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

var _ ports.EventPublisher = (*NopPublisher)(nil)

func (p *NopPublisher) PublishLogout(_ context.Context, address string, tokenID string) error {
	p.logger.Debug("dropping logout event", zap.String("address", address), zap.String("token_id", tokenID))
	return nil
}

func (p *NopPublisher) PublishSignIn(_ context.Context, identity *core.Identity, created bool) error {
	p.logger.Debug("dropping sign-in event", zap.String("address", identity.WalletAddress), zap.Bool("created", created))
	return nil
}

func (p *NopPublisher) PublishClaimSubmitted(_ context.Context, claim *core.Claim, duplicates int) error {
	p.logger.Debug("dropping claim submitted event", zap.String("claim_id", claim.ID), zap.Int("duplicates", duplicates))
	return nil
}

func (p *NopPublisher) PublishClaimReviewed(_ context.Context, claim *core.Claim) error {
	p.logger.Debug("dropping claim reviewed event", zap.String("claim_id", claim.ID), zap.String("status", string(claim.Status)))
	return nil
}
