package cache

import (
	"testing"
	"time"
)

func TestGetRefreshesOnTTLExpiry(t *testing.T) {
	calls := 0
	c := New("test-ttl", 10*time.Millisecond, func(args ...any) (any, error) {
		calls++
		return calls, nil
	})
	v1, err := c.Get("k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("first Get = %v, want 1", v1)
	}
	v2, _ := c.Get("k")
	if v2 != 1 {
		t.Fatalf("second Get within TTL = %v, want cached 1", v2)
	}
	time.Sleep(20 * time.Millisecond)
	v3, _ := c.Get("k")
	if v3 != 2 {
		t.Fatalf("third Get after TTL expiry = %v, want 2", v3)
	}
}

func TestSetOnlyOverwritesWithNewerTimestamp(t *testing.T) {
	c := New("test-set", time.Hour, func(args ...any) (any, error) { return nil, nil })
	t0 := time.Now()
	c.Set("old", t0, "k")
	c.Set("stale", t0.Add(-time.Second), "k")
	v, has, _ := c.Retrieve("k")
	if !has || v != "old" {
		t.Fatalf("older Set should not overwrite, got %v", v)
	}
	c.Set("new", t0.Add(time.Second), "k")
	v, _, _ = c.Retrieve("k")
	if v != "new" {
		t.Fatalf("newer Set should overwrite, got %v", v)
	}
}

func TestRetrieveDoesNotRefresh(t *testing.T) {
	calls := 0
	c := New("test-retrieve", time.Nanosecond, func(args ...any) (any, error) {
		calls++
		return calls, nil
	})
	if _, has, _ := c.Retrieve("k"); has {
		t.Fatal("Retrieve on empty cache should report no entry")
	}
	if calls != 0 {
		t.Fatalf("Retrieve must never invoke the fetcher, calls = %d", calls)
	}
}

func TestVaultFreezeHoldsValueAcrossTTL(t *testing.T) {
	calls := 0
	c := New("test-freeze", time.Nanosecond, func(args ...any) (any, error) {
		calls++
		return calls, nil
	})
	vault := NewVault()
	vault.Register(c)

	first, _ := c.Get("k")
	vault.FreezeAll()
	second, _ := c.Get("k") // first access after freeze may refresh once
	time.Sleep(2 * time.Millisecond)
	third, _ := c.Get("k") // must hold, TTL expiry ignored while frozen
	if second != third {
		t.Fatalf("frozen cache must hold its value: second=%v third=%v", second, third)
	}
	vault.UnfreezeAll()
	_ = first
	time.Sleep(2 * time.Millisecond)
	fourth, _ := c.Get("k")
	if fourth == third {
		t.Fatal("unfrozen cache should refresh again once TTL has elapsed")
	}
}
