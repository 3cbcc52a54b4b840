package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/ports"
)

// Topics events are published on
const (
	TopicLogout         = "creator-ledger.logout"
	TopicSignedIn       = "creator-ledger.identity.signed_in"
	TopicClaimSubmitted = "creator-ledger.claim.submitted"
	TopicClaimReviewed  = "creator-ledger.claim.reviewed"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// SignedInEvent is published after a successful signature exchange
type SignedInEvent struct {
	IdentityID string    `json:"identity_id"`
	Address    string    `json:"address"`
	Created    bool      `json:"created"`
	At         time.Time `json:"at"`
}

// ClaimSubmittedEvent is published for every new claim
type ClaimSubmittedEvent struct {
	ClaimID     string `json:"claim_id"`
	Address     string `json:"address"`
	URL         string `json:"url"`
	ContentHash string `json:"content_hash"`
	Signed      bool   `json:"signed"`
	Duplicates  int    `json:"duplicates"`
}

// ClaimReviewedEvent is published when an admin changes a claim's status
type ClaimReviewedEvent struct {
	ClaimID    string           `json:"claim_id"`
	Address    string           `json:"address"`
	Status     core.ClaimStatus `json:"status"`
	ReviewedBy string           `json:"reviewed_by"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(ctx, TopicLogout, tokenID, LogoutEvent{
		Address: address,
		TokenID: tokenID,
	})
}

// PublishSignIn publishes a sign-in event
func (p *WatermillPublisher) PublishSignIn(ctx context.Context, identity *core.Identity, created bool) error {
	return p.publish(ctx, TopicSignedIn, watermill.NewUUID(), SignedInEvent{
		IdentityID: identity.ID,
		Address:    identity.WalletAddress,
		Created:    created,
		At:         identity.LastSignInAt,
	})
}

// PublishClaimSubmitted publishes a claim submission event
func (p *WatermillPublisher) PublishClaimSubmitted(ctx context.Context, claim *core.Claim, duplicates int) error {
	return p.publish(ctx, TopicClaimSubmitted, claim.ID, ClaimSubmittedEvent{
		ClaimID:     claim.ID,
		Address:     claim.WalletAddress,
		URL:         claim.URL,
		ContentHash: claim.ContentHash,
		Signed:      claim.Signature != "",
		Duplicates:  duplicates,
	})
}

// PublishClaimReviewed publishes a review event
func (p *WatermillPublisher) PublishClaimReviewed(ctx context.Context, claim *core.Claim) error {
	return p.publish(ctx, TopicClaimReviewed, watermill.NewUUID(), ClaimReviewedEvent{
		ClaimID:    claim.ID,
		Address:    claim.WalletAddress,
		Status:     claim.Status,
		ReviewedBy: claim.ReviewedBy,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
