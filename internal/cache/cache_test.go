package cache

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get after Set = (%q, %v), want (\"v\", true)", got, ok)
	}

	c.Delete("k")
	if c.Has("k") {
		t.Error("Has after Delete = true, want false")
	}
}

func TestCacheMiss(t *testing.T) {
	c := New(10, time.Minute)

	if _, ok := c.Get("absent"); ok {
		t.Error("Get on empty cache reported a hit")
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("stats = %+v, want 1 miss, 0 hits", stats)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New(10, 10*time.Millisecond)

	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("Get returned expired entry")
	}
	if c.Has("k") {
		t.Error("Has returned true for expired entry")
	}
}

func TestCacheEvictsLeastUsed(t *testing.T) {
	c := New(2, time.Minute)

	c.Set("hot", "1")
	c.Set("cold", "2")

	// Make "hot" more frequently used.
	for i := 0; i < 3; i++ {
		if _, ok := c.Get("hot"); !ok {
			t.Fatal("hot entry missing before eviction")
		}
	}

	c.Set("new", "3")

	if _, ok := c.Get("cold"); ok {
		t.Error("cold entry survived eviction")
	}
	if _, ok := c.Get("hot"); !ok {
		t.Error("hot entry was evicted")
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("new entry missing after insert")
	}
}

func TestCacheStatsHitRate(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("absent")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("stats = %+v, want 2 hits, 1 miss", stats)
	}
	want := 2.0 / 3.0
	if diff := stats.HitRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("HitRate = %v, want %v", stats.HitRate, want)
	}
}

func TestKeyDistinguishesContext(t *testing.T) {
	base := Key("sys", "user", "model", "persona_a", 1)

	variants := []string{
		Key("sys2", "user", "model", "persona_a", 1),
		Key("sys", "user2", "model", "persona_a", 1),
		Key("sys", "user", "model2", "persona_a", 1),
		Key("sys", "user", "model", "persona_b", 1),
		Key("sys", "user", "model", "persona_a", 2),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base key", i)
		}
	}

	if again := Key("sys", "user", "model", "persona_a", 1); again != base {
		t.Error("identical inputs produced different keys")
	}
}

func TestCacheSweep(t *testing.T) {
	c := New(10, 5*time.Millisecond)

	c.Set("a", "1")
	c.Set("b", "2")
	time.Sleep(10 * time.Millisecond)

	if removed := c.sweep(); removed != 2 {
		t.Errorf("sweep removed %d entries, want 2", removed)
	}
	if got := c.Stats().Entries; got != 0 {
		t.Errorf("entries after sweep = %d, want 0", got)
	}
}

func TestCachePerEntryTTLOverride(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("short", "v", 10*time.Millisecond)
	c.Set("long", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("entry with overridden TTL should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("entry on the default TTL expired early")
	}
}

func TestCacheDeleteReportsPresence(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("k", "v")
	if !c.Delete("k") {
		t.Error("Delete of existing key = false, want true")
	}
	if c.Delete("k") {
		t.Error("Delete of absent key = true, want false")
	}
}

func TestCacheClampsNonPositiveBound(t *testing.T) {
	c := New(0, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	if got := c.Stats().Entries; got > 1 {
		t.Errorf("cache with zero bound holds %d entries, want at most 1", got)
	}
}
