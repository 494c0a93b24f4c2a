package cache

import (
	"context"
	"sync"
	"time"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
)

type rateEntry struct {
	quote     fx.Quote
	expiresAt time.Time
}

// InMemoryRateCache keeps resolved quotes in process memory.
// Suitable for single-instance deployments and tests.
type InMemoryRateCache struct {
	mu        sync.RWMutex
	entries   map[string]rateEntry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRateCache creates a cache whose entries live for ttl.
// A background goroutine evicts expired entries until Close is called.
func NewInMemoryRateCache(ttl time.Duration) *InMemoryRateCache {
	c := &InMemoryRateCache{
		entries:  make(map[string]rateEntry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop(cleanupInterval(ttl))

	return c
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

func pairKey(base, quote valueobject.Currency) string {
	return string(base) + "/" + string(quote)
}

// Get returns the cached quote for base→quote if present and fresh
func (c *InMemoryRateCache) Get(ctx context.Context, base, quote valueobject.Currency) (fx.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[pairKey(base, quote)]
	if !ok || !c.now().Before(e.expiresAt) {
		return fx.Quote{}, false
	}
	return e.quote, true
}

// Set stores q until the cache TTL elapses. A zero TTL disables caching.
func (c *InMemoryRateCache) Set(ctx context.Context, q fx.Quote) error {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[pairKey(q.Base, q.Quote)] = rateEntry{
		quote:     q,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Clear drops every entry
func (c *InMemoryRateCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]rateEntry)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryRateCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryRateCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryRateCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of stored entries, expired ones included
func (c *InMemoryRateCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ fx.RateCache = (*InMemoryRateCache)(nil)
