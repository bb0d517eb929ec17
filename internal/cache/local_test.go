package cache

import (
	"context"
	"testing"
	"time"
)

// TestNoOpCache verifies that NoOpCache implements the Cache interface correctly
func TestNoOpCache(t *testing.T) {
	var c Cache = NewNoOpCache()
	ctx := context.Background()

	reply, ok, err := c.GetReply(ctx, "test-key")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if ok || reply != "" {
		t.Errorf("Expected cache miss, got %q", reply)
	}

	if err := c.SetReply(ctx, "test-key", "answer", time.Hour); err != nil {
		t.Errorf("Expected no error on SetReply, got %v", err)
	}

	// Nothing is stored
	if _, ok, _ := c.GetReply(ctx, "test-key"); ok {
		t.Error("Expected miss after SetReply on no-op cache")
	}

	if err := c.Close(); err != nil {
		t.Errorf("Expected no error on Close, got %v", err)
	}
}

func TestKey(t *testing.T) {
	a := Key("mistral", "prompt")
	if a != Key("mistral", "prompt") {
		t.Error("Key must be deterministic")
	}
	if a == Key("llama3", "prompt") {
		t.Error("Key must depend on the model")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key must separate model and prompt")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256 key, got %d chars", len(a))
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, ok, _ := c.GetReply(ctx, "k"); ok {
		t.Fatal("Expected miss on empty cache")
	}
	if err := c.SetReply(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("SetReply: %v", err)
	}
	if err := c.SetReply(ctx, "forever", "x", 0); err != nil {
		t.Fatalf("SetReply: %v", err)
	}

	reply, ok, err := c.GetReply(ctx, "k")
	if err != nil || !ok || reply != "v" {
		t.Fatalf("Expected hit, got %q %v %v", reply, ok, err)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.GetReply(ctx, "k"); ok {
		t.Error("Expected entry to expire after its TTL")
	}
	if _, ok, _ := c.GetReply(ctx, "forever"); !ok {
		t.Error("Expected zero TTL entry to stay")
	}
	if c.Len() != 1 {
		t.Errorf("Expected expired entry to be evicted, have %d entries", c.Len())
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if c.Len() != 0 {
		t.Error("Expected Close to drop all entries")
	}
}
