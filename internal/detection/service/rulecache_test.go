package service

import (
	"testing"
	"time"

	"github.com/logward/logward/internal/detection/sigma"
)

func TestRuleCacheTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewRuleCache(30 * time.Second)
	c.now = func() time.Time { return now }

	rules := []*sigma.Rule{{}}
	c.Put("org", rules)

	if got, ok := c.Get("org"); !ok || len(got) != 1 {
		t.Fatal("fresh entry must be served")
	}

	now = now.Add(29 * time.Second)
	if _, ok := c.Get("org"); !ok {
		t.Fatal("entry inside TTL must be served")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("org"); ok {
		t.Fatal("expired entry must not be served")
	}
}

func TestRuleCacheInvalidate(t *testing.T) {
	c := NewRuleCache(time.Minute)
	c.Put("a", nil)
	c.Put("b", nil)
	c.Invalidate()
	if _, ok := c.Get("a"); ok {
		t.Fatal("invalidate must drop every scope")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("invalidate must drop every scope")
	}
}

func TestRuleCacheMissingKey(t *testing.T) {
	c := NewRuleCache(time.Minute)
	if _, ok := c.Get("nope"); ok {
		t.Fatal("unknown key must miss")
	}
}

func TestScopeKey(t *testing.T) {
	if ScopeKey("org", nil) != "org" {
		t.Fatal("org-only scope")
	}
	proj := "proj"
	if ScopeKey("org", &proj) != "org|proj" {
		t.Fatal("org+project scope")
	}
}
