package ports

import (
	"context"
	"time"

	"github.com/layer-3/creator-ledger/core"
)

// ClaimStore persists claims and the votes cast on them
type ClaimStore interface {
	CreateClaim(ctx context.Context, claim *core.Claim) error
	GetClaim(ctx context.Context, id string) (*core.Claim, error)
	ListClaimsByWallet(ctx context.Context, walletAddress string, verifiedOnly bool) ([]*core.Claim, error)
	ListClaimsByContentHash(ctx context.Context, contentHash string) ([]*core.Claim, error)
	ListDuplicateGroups(ctx context.Context) ([]core.DuplicateGroup, error)
	UpdateClaimStatus(ctx context.Context, id string, status core.ClaimStatus, reviewer string, at time.Time) (*core.Claim, error)

	UpsertEndorsement(ctx context.Context, endorsement *core.Endorsement) error
	CountVotes(ctx context.Context, claimID string) (endorsements int, disputes int, err error)
}
