package featuredfix

import (
	"context"
	"sync"
	"time"
)

// countCache keeps the eligible document total for ttl. The total only feeds
// progress reporting, so a slightly stale value is acceptable.
type countCache struct {
	mu      sync.RWMutex
	total   int
	fetched time.Time
	ttl     time.Duration
	load    func(context.Context) (int, error)
}

func newCountCache(ttl time.Duration, load func(context.Context) (int, error)) *countCache {
	return &countCache{ttl: ttl, load: load}
}

func (c *countCache) valid() bool {
	return !c.fetched.IsZero() && time.Since(c.fetched) < c.ttl
}

// Get returns the cached total. It tries a read lock first and only takes the
// write lock when the total has to be reloaded.
func (c *countCache) Get(ctx context.Context) (int, error) {
	c.mu.RLock()
	if c.valid() {
		n := c.total
		c.mu.RUnlock()
		return n, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.total, nil
	}
	n, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	c.total = n
	c.fetched = time.Now()
	return n, nil
}

// Invalidate forces the next Get to reload.
func (c *countCache) Invalidate() {
	c.mu.Lock()
	c.fetched = time.Time{}
	c.mu.Unlock()
}
