package cache

import (
	"context"
	"errors"
	"testing"
)

type stubCache struct {
	entries map[string]Entry
	getErr  error
	gets    int
}

func (s *stubCache) Get(_ context.Context, key string) (Entry, bool, error) {
	s.gets++
	if s.getErr != nil {
		return Entry{}, false, s.getErr
	}
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *stubCache) Set(_ context.Context, key string, entry Entry) error {
	s.entries[key] = entry
	return nil
}

func (s *stubCache) Ping(context.Context) error { return nil }

func TestTiered_RemoteHitFillsLocal(t *testing.T) {
	local, _ := NewLRU(10, 0)
	remote := &stubCache{entries: map[string]Entry{"k": {ResponseText: "remote"}}}
	c := NewTiered(local, remote)
	ctx := context.Background()

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || got.ResponseText != "remote" {
		t.Fatalf("Get() = %+v, %v, %v, want remote hit", got, ok, err)
	}

	// Second read is served locally.
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("second Get() should hit")
	}
	if remote.gets != 1 {
		t.Errorf("remote gets = %d, want 1", remote.gets)
	}
}

func TestTiered_RemoteErrorIsMiss(t *testing.T) {
	local, _ := NewLRU(10, 0)
	remote := &stubCache{entries: map[string]Entry{}, getErr: errors.New("connection refused")}
	c := NewTiered(local, remote)

	_, ok, err := c.Get(context.Background(), "k")
	if err != nil || ok {
		t.Errorf("Get() = %v, %v, want silent miss", ok, err)
	}
}

func TestTiered_SetWritesBoth(t *testing.T) {
	local, _ := NewLRU(10, 0)
	remote := &stubCache{entries: map[string]Entry{}}
	c := NewTiered(local, remote)
	ctx := context.Background()

	if err := c.Set(ctx, "k", Entry{ResponseText: "v"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, _ := local.Get(ctx, "k"); !ok {
		t.Error("local tier not written")
	}
	if _, ok := remote.entries["k"]; !ok {
		t.Error("remote tier not written")
	}
}
