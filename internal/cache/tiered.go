package cache

import (
	"context"

	"cat-backend/internal/contextutil"
)

// Tiered checks an in-process LRU before a shared remote cache and fills the
// LRU on remote hits. Remote failures degrade to a miss.
type Tiered struct {
	local  *LRU
	remote Cache
}

// NewTiered layers local over remote.
func NewTiered(local *LRU, remote Cache) *Tiered {
	return &Tiered{local: local, remote: remote}
}

// Get implements Cache.
func (t *Tiered) Get(ctx context.Context, key string) (Entry, bool, error) {
	if entry, ok, _ := t.local.Get(ctx, key); ok {
		return entry, true, nil
	}

	entry, ok, err := t.remote.Get(ctx, key)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "remote cache read failed", "error", err)
		return Entry{}, false, nil
	}
	if ok {
		_ = t.local.Set(ctx, key, entry)
	}
	return entry, ok, nil
}

// Set implements Cache. The local tier is always written.
func (t *Tiered) Set(ctx context.Context, key string, entry Entry) error {
	_ = t.local.Set(ctx, key, entry)
	return t.remote.Set(ctx, key, entry)
}

// Ping implements Cache.
func (t *Tiered) Ping(ctx context.Context) error {
	return t.remote.Ping(ctx)
}
