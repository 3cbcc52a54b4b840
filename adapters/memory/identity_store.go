// Package memory holds in-process identity and claim stores used when no database is configured.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/layer-3/creator-ledger/core"
	"github.com/layer-3/creator-ledger/ports"
)

// IdentityStore is a map-backed ports.IdentityStore
type IdentityStore struct {
	mu       sync.RWMutex
	byID     map[string]*core.Identity
	byWallet map[string]string // wallet -> id
}

// NewIdentityStore creates an empty identity store
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		byID:     make(map[string]*core.Identity),
		byWallet: make(map[string]string),
	}
}

var _ ports.IdentityStore = (*IdentityStore)(nil)

func (s *IdentityStore) GetIdentityByWallet(_ context.Context, walletAddress string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byWallet[walletAddress]
	if !ok {
		return nil, ports.ErrIdentityNotFound
	}
	return copyIdentity(s.byID[id]), nil
}

func (s *IdentityStore) GetIdentity(_ context.Context, id string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, ports.ErrIdentityNotFound
	}
	return copyIdentity(identity), nil
}

func (s *IdentityStore) CreateIdentity(_ context.Context, identity *core.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byWallet[identity.WalletAddress]; ok {
		return ports.ErrIdentityExists
	}
	if _, ok := s.byID[identity.ID]; ok {
		return ports.ErrIdentityExists
	}

	s.byID[identity.ID] = copyIdentity(identity)
	s.byWallet[identity.WalletAddress] = identity.ID
	return nil
}

func (s *IdentityStore) TouchSignIn(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return ports.ErrIdentityNotFound
	}
	identity.LastSignInAt = at
	return nil
}

func copyIdentity(identity *core.Identity) *core.Identity {
	c := *identity
	c.Metadata = maps.Clone(identity.Metadata)
	return &c
}
