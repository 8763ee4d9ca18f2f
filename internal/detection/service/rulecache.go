package service

import (
	"sync"
	"time"

	"github.com/logward/logward/internal/detection/sigma"
)

// RuleCache is an explicit, time-bounded cache of compiled rule sets keyed by
// evaluation scope. It is passed into the detection service rather than held
// as a package singleton so tests control invalidation and tenants running in
// one process do not cross-talk. A rule edit becomes visible after at most
// one TTL, or immediately via Invalidate.
type RuleCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	// now is overridable in tests
	now func() time.Time
}

type cacheEntry struct {
	rules   []*sigma.Rule
	expires time.Time
}

func NewRuleCache(ttl time.Duration) *RuleCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RuleCache{ttl: ttl, entries: map[string]cacheEntry{}, now: time.Now}
}

func (c *RuleCache) Get(key string) ([]*sigma.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.rules, true
}

func (c *RuleCache) Put(key string, rules []*sigma.Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{rules: rules, expires: c.now().Add(c.ttl)}
}

// Invalidate drops every cached scope; called after rule imports and deletes.
func (c *RuleCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry{}
}

// ScopeKey builds the cache key for an evaluation scope.
func ScopeKey(organizationID string, projectID *string) string {
	if projectID == nil {
		return organizationID
	}
	return organizationID + "|" + *projectID
}
