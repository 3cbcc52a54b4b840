package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/creator-ledger/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	consumed          map[string]time.Time
	mu                sync.RWMutex
	now               func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		consumed:          make(map[string]time.Time),
		now:               time.Now,
	}
}

var _ ports.RevocationStore = (*MemoryStore)(nil)

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime := s.now().Add(expiry)
	s.invalidatedTokens[tokenID] = expiryTime
	s.scheduleCleanup(s.invalidatedTokens, tokenID, expiryTime, expiry)

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	// Check if the token invalidation has expired
	if s.now().After(expiryTime) {
		return false, nil
	}

	return true, nil
}

// ConsumeOnce records key and reports whether it had already been recorded
func (s *MemoryStore) ConsumeOnce(ctx context.Context, key string, expiry time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiryTime, exists := s.consumed[key]; exists && !now.After(expiryTime) {
		return true, nil
	}

	expiryTime := now.Add(expiry)
	s.consumed[key] = expiryTime
	s.scheduleCleanup(s.consumed, key, expiryTime, expiry)

	return false, nil
}

// scheduleCleanup drops key once it expires. Caller holds the lock.
func (s *MemoryStore) scheduleCleanup(m map[string]time.Time, key string, expiryTime time.Time, after time.Duration) {
	time.AfterFunc(after, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Only delete if the expiry time hasn't changed
		if storedExpiry, exists := m[key]; exists && !storedExpiry.After(expiryTime) {
			delete(m, key)
		}
	})
}
