// Package seen tracks which article URLs were already processed within a
// fixed time window.
package seen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	keyPrefix = "article_seen:"

	// DefaultTTL is how long a URL stays marked as seen.
	DefaultTTL = 24 * time.Hour
)

// Store is a key-value store with per-key expiry. An expired key must read
// as absent.
type Store interface {
	Get(ctx context.Context, key string) (bool, error)
	SetWithTTL(ctx context.Context, key string, ttl time.Duration) error
}

type Cache struct {
	store Store
	ttl   time.Duration
}

func NewCache(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl}
}

func (c *Cache) IsSeen(ctx context.Context, url string) (bool, error) {
	ok, err := c.store.Get(ctx, Key(url))
	if err != nil {
		return false, fmt.Errorf("get seen marker: %w", err)
	}
	return ok, nil
}

func (c *Cache) MarkSeen(ctx context.Context, url string) error {
	if err := c.store.SetWithTTL(ctx, Key(url), c.ttl); err != nil {
		return fmt.Errorf("set seen marker: %w", err)
	}
	return nil
}

// Key returns the store key for url: a prefix plus the hex SHA-256 of the URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}
