package cache

import (
	"testing"
	"time"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := NewTTLCache[string, int]()

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", 1, time.Minute)
	value, ok := c.Get("a")
	if !ok || value != 1 {
		t.Fatalf("expected hit with 1, got %v %v", value, ok)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 0)
	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected zero-ttl entry to stay")
	}
}

func TestTTLCachePurge(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Purge()
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected purge to drop entries")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected purge to drop entries")
	}
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected delete to drop entry")
	}
}
