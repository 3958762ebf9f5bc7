package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/agent-capability-network/go-acn-bridge/src/capability"
)

const (
	// FreshnessWindow is how long a fetched capability list is served
	// without hitting the discovery endpoint again.
	FreshnessWindow = 60 * time.Second
	// DiscoverLimit bounds each discovery request.
	DiscoverLimit = 50
)

// Discoverer fetches the current capability list, typically the coordinator
// client.
type Discoverer interface {
	Discover(ctx context.Context, limit int) ([]capability.Capability, error)
}

// CapabilityCache holds the last-fetched capability list for the process
// lifetime. The list is replaced wholesale on every successful refresh and
// retained unchanged when a refresh fails, so callers see a stale list
// rather than an empty one. Concurrent refreshes are tolerated: last writer
// wins, staleness is the only risk.
type CapabilityCache struct {
	source Discoverer
	logger func(format string, args ...interface{})

	// Now is the clock used for freshness checks; overridable in tests.
	Now func() time.Time

	mu        sync.RWMutex
	entries   []capability.Capability
	fetchedAt time.Time
}

func New(source Discoverer, logger func(format string, args ...interface{})) *CapabilityCache {
	if logger == nil {
		logger = log.Printf
	}
	return &CapabilityCache{
		source: source,
		logger: logger,
		Now:    time.Now,
	}
}

// Get returns the cached capability list, refreshing it first when it is
// empty or older than FreshnessWindow. A failed refresh is logged and the
// previous (possibly empty) list is returned; refresh failure is never
// surfaced to callers.
func (c *CapabilityCache) Get(ctx context.Context) []capability.Capability {
	c.mu.RLock()
	entries := c.entries
	fresh := len(entries) > 0 && c.Now().Sub(c.fetchedAt) < FreshnessWindow
	c.mu.RUnlock()
	if fresh {
		return entries
	}

	fetched, err := c.source.Discover(ctx, DiscoverLimit)
	if err != nil {
		c.logger("capability discovery failed, serving cached list (%d entries): %v", len(entries), err)
		return entries
	}

	c.mu.Lock()
	c.entries = fetched
	c.fetchedAt = c.Now()
	c.mu.Unlock()
	return fetched
}
