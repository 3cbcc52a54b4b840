package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/layer-3/creator-ledger/adapters/pg/dao"
	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/ports"
)

// ClaimStore is the postgres implementation of ports.ClaimStore
type ClaimStore struct {
	db *bun.DB
}

// NewClaimStore creates a new postgres claim store
func NewClaimStore(db *bun.DB) *ClaimStore {
	return &ClaimStore{db: db}
}

var _ ports.ClaimStore = (*ClaimStore)(nil)

func (s *ClaimStore) CreateClaim(ctx context.Context, claim *core.Claim) error {
	_, err := s.db.NewInsert().
		Model(dao.FromClaim(claim)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

func (s *ClaimStore) GetClaim(ctx context.Context, id string) (*core.Claim, error) {
	d := new(dao.ClaimDao)
	err := s.db.NewSelect().Model(d).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	claim := d.ToClaim()
	claim.Endorsements, claim.Disputes, err = s.CountVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *ClaimStore) ListClaimsByWallet(ctx context.Context, walletAddress string, verifiedOnly bool) ([]*core.Claim, error) {
	var daos []dao.ClaimDao
	query := s.db.NewSelect().
		Model(&daos).
		Where("wallet_address = ?", walletAddress).
		Order("created_at DESC")
	if verifiedOnly {
		query = query.Where("status = ?", string(core.StatusVerified))
	}
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return s.withVotes(ctx, daos)
}

func (s *ClaimStore) ListClaimsByContentHash(ctx context.Context, contentHash string) ([]*core.Claim, error) {
	var daos []dao.ClaimDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("content_hash = ?", contentHash).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims by content hash: %w", err)
	}
	return s.withVotes(ctx, daos)
}

func (s *ClaimStore) ListDuplicateGroups(ctx context.Context) ([]core.DuplicateGroup, error) {
	var hashes []string
	err := s.db.NewSelect().
		Model((*dao.ClaimDao)(nil)).
		Column("content_hash").
		Group("content_hash").
		Having("COUNT(*) >= 2").
		Order("content_hash").
		Scan(ctx, &hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate hashes: %w", err)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	var daos []dao.ClaimDao
	err = s.db.NewSelect().
		Model(&daos).
		Where("content_hash IN (?)", bun.In(hashes)).
		Order("content_hash", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate claims: %w", err)
	}

	claims, err := s.withVotes(ctx, daos)
	if err != nil {
		return nil, err
	}

	groups := make([]core.DuplicateGroup, 0, len(hashes))
	for _, c := range claims {
		if n := len(groups); n == 0 || groups[n-1].ContentHash != c.ContentHash {
			groups = append(groups, core.DuplicateGroup{ContentHash: c.ContentHash})
		}
		last := &groups[len(groups)-1]
		last.Claims = append(last.Claims, c)
	}
	return groups, nil
}

func (s *ClaimStore) UpdateClaimStatus(ctx context.Context, id string, status core.ClaimStatus, reviewer string, at time.Time) (*core.Claim, error) {
	d := new(dao.ClaimDao)
	err := s.db.NewUpdate().
		Model(d).
		Set("status = ?", string(status)).
		Set("reviewed_by = ?", reviewer).
		Set("reviewed_at = ?", at).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to update claim: %w", err)
	}

	claim := d.ToClaim()
	claim.Endorsements, claim.Disputes, err = s.CountVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *ClaimStore) UpsertEndorsement(ctx context.Context, endorsement *core.Endorsement) error {
	_, err := s.db.NewInsert().
		Model(dao.FromEndorsement(endorsement)).
		On("CONFLICT (claim_id, wallet_address) DO UPDATE").
		Set("vote = EXCLUDED.vote").
		Set("signature = EXCLUDED.signature").
		Set("message = EXCLUDED.message").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert endorsement: %w", err)
	}
	return nil
}

func (s *ClaimStore) CountVotes(ctx context.Context, claimID string) (int, int, error) {
	var endorsements, disputes int
	err := s.db.NewSelect().
		Model((*dao.EndorsementDao)(nil)).
		ColumnExpr("COUNT(*) FILTER (WHERE vote = ?)", string(core.VoteEndorse)).
		ColumnExpr("COUNT(*) FILTER (WHERE vote = ?)", string(core.VoteDispute)).
		Where("claim_id = ?", claimID).
		Scan(ctx, &endorsements, &disputes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return endorsements, disputes, nil
}

type voteCount struct {
	ClaimID string `bun:"claim_id"`
	Vote    string `bun:"vote"`
	N       int    `bun:"n"`
}

// withVotes converts daos and fills their vote counts with a single grouped query
func (s *ClaimStore) withVotes(ctx context.Context, daos []dao.ClaimDao) ([]*core.Claim, error) {
	claims := make([]*core.Claim, len(daos))
	if len(daos) == 0 {
		return claims, nil
	}

	ids := make([]string, len(daos))
	byID := make(map[string]*core.Claim, len(daos))
	for i := range daos {
		claims[i] = daos[i].ToClaim()
		ids[i] = daos[i].ID
		byID[daos[i].ID] = claims[i]
	}

	var counts []voteCount
	err := s.db.NewSelect().
		Model((*dao.EndorsementDao)(nil)).
		Column("claim_id", "vote").
		ColumnExpr("COUNT(*) AS n").
		Where("claim_id IN (?)", bun.In(ids)).
		Group("claim_id", "vote").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	for _, vc := range counts {
		c, ok := byID[vc.ClaimID]
		if !ok {
			continue
		}
		switch core.Vote(vc.Vote) {
		case core.VoteEndorse:
			c.Endorsements = vc.N
		case core.VoteDispute:
			c.Disputes = vc.N
		}
	}
	return claims, nil
}
