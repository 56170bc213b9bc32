// Package cache stores generated answers so repeated questions skip the
// vector store and the LLM.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is a cached answer.
type Entry struct {
	ResponseText string    `json:"response_text"`
	Model        string    `json:"model"`
	Collection   string    `json:"collection"`
	Documents    int       `json:"documents"`
	CreatedAt    time.Time `json:"created_at"`
}

// Cache is a key/value store for answers.
type Cache interface {
	// Get returns the entry for key and whether it was found.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set stores entry under key.
	Set(ctx context.Context, key string, entry Entry) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Key derives a cache key from the inputs that determine an answer.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeQuery folds case and whitespace so trivially different spellings share a key.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
