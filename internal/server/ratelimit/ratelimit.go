// Package ratelimit implements IP-based admission control for the auth
// endpoints: a fixed-window counter keyed by client IP and, optionally,
// the endpoint being called. The limiter is injected as an interface so a
// shared cache can replace the in-memory map in multi-instance setups.
package ratelimit

import (
	"sync"
	"time"

	"github.com/msavelyev/authkeeper/internal/common"
)

// Config describes the budget for one protected operation.
type Config struct {
	// Requests allowed per window. Zero or negative disables the limit.
	Requests int
	// Window is the fixed-window length.
	Window time.Duration
	// EndpointSpecific keys buckets by (ip, endpoint) instead of ip alone.
	EndpointSpecific bool
}

// Limiter is the admission-control gate checked before business logic.
type Limiter interface {
	// CheckAndConsume counts this call against the caller's budget and
	// returns common.ErrorRateLimited once the budget is exhausted. The
	// check and the increment are one atomic step.
	CheckAndConsume(ip, endpoint string, cfg Config) error
}

type bucketKey struct {
	ip       string
	endpoint string
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is the in-memory Limiter for single-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	now     func() time.Time
}

// NewMemoryLimiter constructs an empty limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[bucketKey]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) CheckAndConsume(ip, endpoint string, cfg Config) error {
	if cfg.Requests <= 0 {
		return nil
	}

	key := bucketKey{ip: ip}
	if cfg.EndpointSpecific {
		key.endpoint = endpoint
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(cfg.Window)}
		return nil
	}

	if b.count >= cfg.Requests {
		return common.ErrorRateLimited
	}
	b.count++
	return nil
}

// Prune drops buckets whose window has passed and returns how many were
// removed. Called from the cleanup scheduler; requests themselves reset
// stale buckets lazily, so pruning only bounds memory.
func (l *MemoryLimiter) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
