package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestSemanticCacheSetThenGetRoundTrips(t *testing.T) {
	c := NewSemanticCache(Config{TTL: time.Minute})
	sig := c.BuildSignature("fitness", "travel")
	c.Set(sig, Entry{Value: json.RawMessage(`{"match":"cat-1"}`)})

	entry, ok := c.Get(sig)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if string(entry.Value) != `{"match":"cat-1"}` {
		t.Errorf("entry.Value = %s, want the stored payload", entry.Value)
	}
}

func TestSemanticCacheMissForUnknownSignature(t *testing.T) {
	c := NewSemanticCache(Config{})
	if _, ok := c.Get("never-set"); ok {
		t.Fatal("expected a cache miss")
	}
}

func TestSemanticCacheExpiresEntriesPastTTL(t *testing.T) {
	c := NewSemanticCache(Config{TTL: time.Millisecond})
	sig := c.BuildSignature("fitness")
	c.Set(sig, Entry{Value: json.RawMessage(`{}`)})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(sig); ok {
		t.Fatal("expected the entry to have already expired")
	}
}

func TestSemanticCacheEvictsOldestWhenFull(t *testing.T) {
	c := NewSemanticCache(Config{TTL: time.Hour, MaxEntries: 2})
	c.Set("sig-a", Entry{Value: json.RawMessage(`"a"`)})
	c.Set("sig-b", Entry{Value: json.RawMessage(`"b"`)})
	c.Set("sig-c", Entry{Value: json.RawMessage(`"c"`)})

	if _, ok := c.Get("sig-a"); ok {
		t.Error("expected the oldest entry to have been evicted")
	}
	if _, ok := c.Get("sig-c"); !ok {
		t.Error("expected the newest entry to survive")
	}
}

func TestBuildSignatureIsCaseAndWhitespaceInsensitive(t *testing.T) {
	c := NewSemanticCache(Config{})
	if c.BuildSignature("  Fitness ", "Travel") != c.BuildSignature("fitness", "travel") {
		t.Error("expected BuildSignature to normalize case and surrounding whitespace")
	}
}

func TestInProcessCacheGetSetRoundTrips(t *testing.T) {
	c := NewInProcessCache(Config{TTL: time.Minute})
	ctx := context.Background()

	if err := c.Set(ctx, "sig-1", map[string]string{"Fitness": "cat-1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out map[string]string
	found, err := c.Get(ctx, "sig-1", &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if out["Fitness"] != "cat-1" {
		t.Errorf("out = %v, want Fitness -> cat-1", out)
	}
}

func TestInProcessCacheMissReturnsFalseNotError(t *testing.T) {
	c := NewInProcessCache(Config{})
	var out []float32
	found, err := c.Get(context.Background(), "missing", &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("expected a cache miss for an unset signature")
	}
}
