// Package dao holds the bun models mapped to the creator ledger tables.
package dao

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/layer-3/creator-ledger/core"
)

// IdentityDao maps to the 'identities' table
type IdentityDao struct {
	bun.BaseModel `bun:"table:identities,alias:i"`
	ID            string            `bun:"id,pk,type:uuid"`
	WalletAddress string            `bun:"wallet_address,unique,notnull,type:varchar(42)"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	CreatedAt     time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	LastSignInAt  *time.Time        `bun:"last_sign_in_at"`
}

// ClaimDao maps to the 'claims' table
type ClaimDao struct {
	bun.BaseModel `bun:"table:claims,alias:c"`
	ID            string     `bun:"id,pk,type:uuid"`
	WalletAddress string     `bun:"wallet_address,notnull,type:varchar(42)"`
	URL           string     `bun:"url,notnull,type:text"`
	Title         string     `bun:"title,notnull,type:text"`
	ContentHash   string     `bun:"content_hash,notnull,type:char(64)"`
	Signature     *string    `bun:"signature,type:varchar(132)"`
	Message       *string    `bun:"message,type:text"`
	Status        string     `bun:"status,notnull,type:varchar(16),default:'unverified'"`
	ReviewedBy    *string    `bun:"reviewed_by,type:varchar(42)"`
	ReviewedAt    *time.Time `bun:"reviewed_at"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// EndorsementDao maps to the 'endorsements' table.
// (claim_id, wallet_address) is unique, a repeated vote overwrites the row.
type EndorsementDao struct {
	bun.BaseModel `bun:"table:endorsements,alias:e"`
	ID            string    `bun:"id,pk,type:uuid"`
	ClaimID       string    `bun:"claim_id,notnull,type:uuid,unique:endorsements_claim_wallet"`
	WalletAddress string    `bun:"wallet_address,notnull,type:varchar(42),unique:endorsements_claim_wallet"`
	Vote          string    `bun:"vote,notnull,type:varchar(16)"`
	Signature     string    `bun:"signature,notnull,type:varchar(132)"`
	Message       string    `bun:"message,notnull,type:text"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// FromIdentity converts a core.Identity to IdentityDao
func FromIdentity(identity *core.Identity) *IdentityDao {
	d := &IdentityDao{
		ID:            identity.ID,
		WalletAddress: identity.WalletAddress,
		Metadata:      identity.Metadata,
		CreatedAt:     identity.CreatedAt,
	}
	if !identity.LastSignInAt.IsZero() {
		at := identity.LastSignInAt
		d.LastSignInAt = &at
	}
	return d
}

// ToIdentity converts an IdentityDao to core.Identity
func (d *IdentityDao) ToIdentity() *core.Identity {
	identity := &core.Identity{
		ID:            d.ID,
		WalletAddress: d.WalletAddress,
		Metadata:      d.Metadata,
		CreatedAt:     d.CreatedAt,
	}
	if d.LastSignInAt != nil {
		identity.LastSignInAt = *d.LastSignInAt
	}
	return identity
}

// FromClaim converts a core.Claim to ClaimDao
func FromClaim(claim *core.Claim) *ClaimDao {
	d := &ClaimDao{
		ID:            claim.ID,
		WalletAddress: claim.WalletAddress,
		URL:           claim.URL,
		Title:         claim.Title,
		ContentHash:   claim.ContentHash,
		Status:        string(claim.Status),
		ReviewedAt:    claim.ReviewedAt,
		CreatedAt:     claim.CreatedAt,
	}
	if claim.Signature != "" {
		d.Signature = &claim.Signature
	}
	if claim.Message != "" {
		d.Message = &claim.Message
	}
	if claim.ReviewedBy != "" {
		d.ReviewedBy = &claim.ReviewedBy
	}
	return d
}

// ToClaim converts a ClaimDao to core.Claim. Vote counts are left zero.
func (d *ClaimDao) ToClaim() *core.Claim {
	claim := &core.Claim{
		ID:            d.ID,
		WalletAddress: d.WalletAddress,
		URL:           d.URL,
		Title:         d.Title,
		ContentHash:   d.ContentHash,
		Status:        core.ClaimStatus(d.Status),
		ReviewedAt:    d.ReviewedAt,
		CreatedAt:     d.CreatedAt,
	}
	if d.Signature != nil {
		claim.Signature = *d.Signature
	}
	if d.Message != nil {
		claim.Message = *d.Message
	}
	if d.ReviewedBy != nil {
		claim.ReviewedBy = *d.ReviewedBy
	}
	return claim
}

// FromEndorsement converts a core.Endorsement to EndorsementDao
func FromEndorsement(e *core.Endorsement) *EndorsementDao {
	return &EndorsementDao{
		ID:            e.ID,
		ClaimID:       e.ClaimID,
		WalletAddress: e.WalletAddress,
		Vote:          string(e.Vote),
		Signature:     e.Signature,
		Message:       e.Message,
		CreatedAt:     e.CreatedAt,
	}
}
