package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores raw model replies keyed by model and prompt.
type Cache interface {
	// GetReply returns the cached reply and whether it was found.
	GetReply(ctx context.Context, key string) (string, bool, error)

	// SetReply stores a reply with TTL. A zero TTL means no expiry.
	SetReply(ctx context.Context, key, reply string, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Key derives a stable cache key for a prompt sent to a model.
func Key(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}
