// Package dedup suppresses re-forwarding of a signal already seen within its
// TTL window. Best-effort, scoped to the process lifetime (the Redis backend
// happens to survive restarts, which is a bonus, not a contract).
package dedup

import (
	"context"
	"time"

	"SignalRelay/pkg/cache"
)

// Sequencer admits each key at most once per TTL window. Atomicity comes
// from the cache backend's set-if-absent, so two racing admits of the same
// key resolve to exactly one true.
type Sequencer struct {
	cache cache.Service
	ttl   time.Duration
}

// New creates a sequencer over the given cache backend.
func New(c cache.Service, ttl time.Duration) *Sequencer {
	return &Sequencer{cache: c, ttl: ttl}
}

// Admit returns true the first time key is seen within the TTL window and
// false thereafter until the entry expires.
func (s *Sequencer) Admit(ctx context.Context, key string) (bool, error) {
	return s.cache.TryLock(ctx, key, s.ttl)
}

// Forget drops a key early, re-arming it before TTL expiry.
func (s *Sequencer) Forget(ctx context.Context, key string) error {
	return s.cache.Unlock(ctx, key)
}
