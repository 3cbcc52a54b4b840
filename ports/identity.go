package ports

import (
	"context"
	"errors"
	"time"

	"github.com/layer-3/creator-ledger/core"
)

var (
	// ErrIdentityNotFound is returned when no identity matches a lookup
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityExists is returned when creating an identity for a wallet that already has one
	ErrIdentityExists = errors.New("identity already exists")
)

// IdentityStore persists identities keyed by lowercase wallet address
type IdentityStore interface {
	GetIdentityByWallet(ctx context.Context, walletAddress string) (*core.Identity, error)
	GetIdentity(ctx context.Context, id string) (*core.Identity, error)
	CreateIdentity(ctx context.Context, identity *core.Identity) error
	TouchSignIn(ctx context.Context, id string, at time.Time) error
}
