package schedule

import (
	"context"
	"sync"
	"time"

	"tracker.wpgtransit.org/internal/clock"
)

// ArrivalsSource is what the REST layer consumes; both Reconciler and
// CachedReconciler satisfy it.
type ArrivalsSource interface {
	ArrivalsFor(ctx context.Context, stopID string) (Result, error)
}

type cachedResult struct {
	result    Result
	expiresAt time.Time
}

// CachedReconciler memoizes per-stop results for a short TTL so repeated
// polling of the same stop does not hammer the live feed. Errors are
// never cached.
type CachedReconciler struct {
	inner ArrivalsSource
	clock clock.Clock
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cachedResult
}

// NewCachedReconciler wraps inner with a ttl-bounded result cache.
func NewCachedReconciler(inner ArrivalsSource, clk clock.Clock, ttl time.Duration) *CachedReconciler {
	return &CachedReconciler{
		inner:   inner,
		clock:   clk,
		ttl:     ttl,
		entries: make(map[string]cachedResult),
	}
}

// ArrivalsFor serves from cache when a fresh entry exists, otherwise
// delegates and stores the outcome.
func (c *CachedReconciler) ArrivalsFor(ctx context.Context, stopID string) (Result, error) {
	now := c.clock.Now()

	c.mu.Lock()
	if cached, ok := c.entries[stopID]; ok && now.Before(cached.expiresAt) {
		c.mu.Unlock()
		return cached.result, nil
	}
	c.mu.Unlock()

	result, err := c.inner.ArrivalsFor(ctx, stopID)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.entries[stopID] = cachedResult{result: result, expiresAt: now.Add(c.ttl)}
	// Expired entries are swept on write, there is no background timer.
	for id, cached := range c.entries {
		if !now.Before(cached.expiresAt) {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()

	return result, nil
}
