package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRU_GetSet(t *testing.T) {
	c, err := NewLRU(2, 0)
	if err != nil {
		t.Fatalf("NewLRU() error = %v", err)
	}
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("Get() on empty cache reported a hit")
	}

	entry := Entry{ResponseText: "RAG is retrieval-augmented generation.", Model: "llama3.1", Documents: 2}
	if err := c.Set(ctx, "k1", entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, want hit", ok, err)
	}
	if got != entry {
		t.Errorf("Get() = %+v, want %+v", got, entry)
	}

	// Capacity 2: adding two more evicts k1.
	_ = c.Set(ctx, "k2", entry)
	_ = c.Set(ctx, "k3", entry)
	if _, ok, _ := c.Get(ctx, "k1"); ok {
		t.Error("Get() k1 should have been evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRU_TTL(t *testing.T) {
	c, err := NewLRU(10, time.Minute)
	if err != nil {
		t.Fatalf("NewLRU() error = %v", err)
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "k", Entry{ResponseText: "cached"})

	now = now.Add(30 * time.Second)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Error("Get() before TTL should hit")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get() after TTL should miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, Len() = %d", c.Len())
	}
}

func TestNewLRU_InvalidSize(t *testing.T) {
	if _, err := NewLRU(0, 0); err == nil {
		t.Error("NewLRU(0) expected error, got nil")
	}
}

func TestKey(t *testing.T) {
	a := Key("llama3.1", "tmpl", "docs", "what is rag?")
	b := Key("llama3.1", "tmpl", "docs", "what is rag?")
	if a != b {
		t.Error("Key() not deterministic")
	}
	if Key("llama3.1", "tmpl", "docs", "what is rag?") == Key("mistral", "tmpl", "docs", "what is rag?") {
		t.Error("Key() ignores the model")
	}
	// Part boundaries matter.
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key() collides across part boundaries")
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  What   is\tRAG? "); got != "what is rag?" {
		t.Errorf("NormalizeQuery() = %q, want %q", got, "what is rag?")
	}
}
