package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/ports"
)

type voteKey struct {
	claimID string
	wallet  string
}

// ClaimStore is a map-backed ports.ClaimStore
type ClaimStore struct {
	mu     sync.RWMutex
	claims map[string]*core.Claim
	order  []string // insertion order
	votes  map[voteKey]*core.Endorsement
}

// NewClaimStore creates an empty claim store
func NewClaimStore() *ClaimStore {
	return &ClaimStore{
		claims: make(map[string]*core.Claim),
		votes:  make(map[voteKey]*core.Endorsement),
	}
}

var _ ports.ClaimStore = (*ClaimStore)(nil)

func (s *ClaimStore) CreateClaim(_ context.Context, claim *core.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *claim
	s.claims[claim.ID] = &c
	s.order = append(s.order, claim.ID)
	return nil
}

func (s *ClaimStore) GetClaim(_ context.Context, id string) (*core.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claim, ok := s.claims[id]
	if !ok {
		return nil, core.ErrClaimNotFound
	}
	return s.view(claim), nil
}

// ListClaimsByWallet returns the wallet's claims, newest first
func (s *ClaimStore) ListClaimsByWallet(_ context.Context, walletAddress string, verifiedOnly bool) ([]*core.Claim, error) {
	return s.filter(func(c *core.Claim) bool {
		if c.WalletAddress != walletAddress {
			return false
		}
		return !verifiedOnly || c.Status == core.StatusVerified
	}, true), nil
}

func (s *ClaimStore) ListClaimsByContentHash(_ context.Context, contentHash string) ([]*core.Claim, error) {
	return s.filter(func(c *core.Claim) bool {
		return c.ContentHash == contentHash
	}, false), nil
}

func (s *ClaimStore) ListDuplicateGroups(_ context.Context) ([]core.DuplicateGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byHash := make(map[string][]*core.Claim)
	for _, id := range s.order {
		c := s.claims[id]
		byHash[c.ContentHash] = append(byHash[c.ContentHash], s.view(c))
	}

	var groups []core.DuplicateGroup
	for hash, claims := range byHash {
		if len(claims) < 2 {
			continue
		}
		groups = append(groups, core.DuplicateGroup{ContentHash: hash, Claims: claims})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].ContentHash < groups[j].ContentHash
	})
	return groups, nil
}

func (s *ClaimStore) UpdateClaimStatus(_ context.Context, id string, status core.ClaimStatus, reviewer string, at time.Time) (*core.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[id]
	if !ok {
		return nil, core.ErrClaimNotFound
	}
	claim.Status = status
	claim.ReviewedBy = reviewer
	claim.ReviewedAt = &at
	return s.view(claim), nil
}

func (s *ClaimStore) UpsertEndorsement(_ context.Context, endorsement *core.Endorsement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[endorsement.ClaimID]; !ok {
		return core.ErrClaimNotFound
	}
	e := *endorsement
	s.votes[voteKey{claimID: e.ClaimID, wallet: e.WalletAddress}] = &e
	return nil
}

func (s *ClaimStore) CountVotes(_ context.Context, claimID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	endorsements, disputes := s.count(claimID)
	return endorsements, disputes, nil
}

// filter must be called without the lock held
func (s *ClaimStore) filter(keep func(*core.Claim) bool, newestFirst bool) []*core.Claim {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Claim, 0)
	for _, id := range s.order {
		if c := s.claims[id]; keep(c) {
			out = append(out, s.view(c))
		}
	}
	if newestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// view returns a copy of claim with vote counts filled. Caller holds the lock.
func (s *ClaimStore) view(claim *core.Claim) *core.Claim {
	c := *claim
	if claim.ReviewedAt != nil {
		at := *claim.ReviewedAt
		c.ReviewedAt = &at
	}
	c.Endorsements, c.Disputes = s.count(claim.ID)
	return &c
}

func (s *ClaimStore) count(claimID string) (endorsements, disputes int) {
	for k, v := range s.votes {
		if k.claimID != claimID {
			continue
		}
		switch v.Vote {
		case core.VoteEndorse:
			endorsements++
		case core.VoteDispute:
			disputes++
		}
	}
	return endorsements, disputes
}
