package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruItem struct {
	entry     Entry
	expiresAt time.Time
}

// LRU is an in-process cache bounded by entry count. Entries older than the
// TTL are treated as missing.
type LRU struct {
	local *lru.Cache[string, lruItem]
	ttl   time.Duration
	now   func() time.Time
}

// NewLRU creates an LRU holding at most size entries. A zero ttl never expires.
func NewLRU(size int, ttl time.Duration) (*LRU, error) {
	local, err := lru.New[string, lruItem](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &LRU{local: local, ttl: ttl, now: time.Now}, nil
}

// Get implements Cache.
func (c *LRU) Get(_ context.Context, key string) (Entry, bool, error) {
	item, ok := c.local.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	if !item.expiresAt.IsZero() && c.now().After(item.expiresAt) {
		c.local.Remove(key)
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

// Set implements Cache.
func (c *LRU) Set(_ context.Context, key string, entry Entry) error {
	item := lruItem{entry: entry}
	if c.ttl > 0 {
		item.expiresAt = c.now().Add(c.ttl)
	}
	c.local.Add(key, item)
	return nil
}

// Ping implements Cache.
func (c *LRU) Ping(context.Context) error {
	return nil
}

// Len returns the number of cached entries, expired ones included.
func (c *LRU) Len() int {
	return c.local.Len()
}
