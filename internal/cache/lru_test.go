package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	var evictedKeys []string
	c := NewLRUCache[int](2, time.Minute, WithEvictHandler(func(key string, _ int, reason EvictReason) {
		if reason == EvictCapacity {
			evictedKeys = append(evictedKeys, key)
		}
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // "b" is now least recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}
	if len(evictedKeys) != 1 || evictedKeys[0] != "b" {
		t.Fatalf("unexpected evictions: %v", evictedKeys)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reasons := map[string]EvictReason{}
	c := NewLRUCache[string](10, time.Minute,
		WithClock[string](func() time.Time { return now }),
		WithEvictHandler(func(key string, _ string, reason EvictReason) { reasons[key] = reason }),
	)

	c.Set("short", "x")
	c.SetWithTTL("long", "y", time.Hour)
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("short"); ok {
		t.Fatal("expected short to expire")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("expected nothing left to clean, removed %d", n)
	}
	if c.Size() != 1 {
		t.Fatalf("expected 1 item, got %d", c.Size())
	}
	if reasons["short"] != EvictExpired {
		t.Fatalf("expected expired reason, got %v", reasons["short"])
	}

	c.Delete("long")
	if reasons["long"] != EvictDeleted || c.Size() != 0 {
		t.Fatalf("expected long deleted, reasons=%v size=%d", reasons, c.Size())
	}
}

func TestManagerCleanAll(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](10, time.Second, WithClock[int](func() time.Time { return now }))
	c.Set("a", 1)
	now = now.Add(time.Minute)

	m := NewManager(nil)
	m.Register("test", c)
	if got := m.CleanAll()["test"]; got != 1 {
		t.Fatalf("expected 1 cleaned, got %d", got)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
