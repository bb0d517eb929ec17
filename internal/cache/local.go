package cache

import (
	"context"
	"sync"
	"time"
)

// NoOpCache misses every lookup. Used when CACHE_PROVIDER=none.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (*NoOpCache) GetReply(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (*NoOpCache) SetReply(context.Context, string, string, time.Duration) error {
	return nil
}

func (*NoOpCache) Close() error {
	return nil
}

// MemoryCache keeps replies in process memory for the lifetime of one command. It
// saves model calls when a document repeats a chunk verbatim.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	reply   string
	expires time.Time // zero never expires
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) GetReply(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.reply, true, nil
}

func (c *MemoryCache) SetReply(_ context.Context, key, reply string, ttl time.Duration) error {
	e := memoryEntry{reply: reply}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}
