// Package ratelimit provides fixed-window request counters.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/creator-ledger/ports"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps windows in process memory. Counters are not shared
// between instances; use RedisStore when running more than one.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

var _ ports.RateLimitStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store that sweeps expired windows every sweepInterval.
// A non-positive interval disables sweeping.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Check counts a request against key
func (s *MemoryStore) Check(_ context.Context, key string, limit ports.Limit) (ports.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(limit.Window)}
		s.windows[key] = w
		return ports.RateLimitResult{
			Allowed:   limit.Max > 0,
			Remaining: max(limit.Max-1, 0),
			ResetAt:   w.resetAt,
		}, nil
	}

	if w.count >= limit.Max {
		return ports.RateLimitResult{Allowed: false, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return ports.RateLimitResult{
		Allowed:   true,
		Remaining: limit.Max - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

// Close stops the sweeper
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
		}
	}
}
