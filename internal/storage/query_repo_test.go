package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func strp(s string) *string { return &s }

func durp(d time.Duration) *time.Duration { return &d }

func TestQueryRepo_ApplyPatch_Register(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	id := uuid.New()
	received := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err := repo.ApplyPatch(ctx, DetailPatch{
		QueryID:   id,
		Status:    StatusNew,
		StatusAt:  received,
		QueryText: strp("What is RAG?"),
		Timestamp: &received,
	})
	if err != nil {
		t.Fatalf("ApplyPatch() error = %v", err)
	}

	status, err := repo.GetStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Status != StatusNew {
		t.Errorf("GetStatus() status = %v, want %v", status.Status, StatusNew)
	}
	if !status.Timestamp.Equal(received) {
		t.Errorf("GetStatus() timestamp = %v, want %v", status.Timestamp, received)
	}

	detail, err := repo.GetDetail(ctx, id)
	if err != nil {
		t.Fatalf("GetDetail() error = %v", err)
	}
	if detail.QueryText == nil || *detail.QueryText != "What is RAG?" {
		t.Errorf("GetDetail() query_text = %v, want %q", detail.QueryText, "What is RAG?")
	}
	if detail.Timestamp == nil || !detail.Timestamp.Equal(received) {
		t.Errorf("GetDetail() timestamp = %v, want %v", detail.Timestamp, received)
	}
	if detail.VDBLatency != nil || detail.LLMLatency != nil {
		t.Errorf("GetDetail() latencies should be unset, got vdb=%v llm=%v", detail.VDBLatency, detail.LLMLatency)
	}
}

func TestQueryRepo_ApplyPatch_FieldLevelMerge(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()
	id := uuid.New()

	// Final update lands before the retrieval update.
	patches := []DetailPatch{
		{
			QueryID:      id,
			Status:       StatusDone,
			LLMModel:     strp("llama3.1"),
			LLMLatency:   durp(1500 * time.Millisecond),
			TotalLatency: durp(2 * time.Second),
			Info:         map[string]any{"documents": 2},
		},
		{
			QueryID:    id,
			Status:     StatusVDBDone,
			VDBName:    strp("qdrant"),
			VDBIndex:   strp("docs"),
			VDBLatency: durp(250 * time.Millisecond),
		},
		{
			QueryID:   id,
			QueryText: strp("What is RAG?"),
		},
	}
	for _, p := range patches {
		if err := repo.ApplyPatch(ctx, p); err != nil {
			t.Fatalf("ApplyPatch() error = %v", err)
		}
	}

	detail, err := repo.GetDetail(ctx, id)
	if err != nil {
		t.Fatalf("GetDetail() error = %v", err)
	}

	if detail.QueryText == nil || *detail.QueryText != "What is RAG?" {
		t.Errorf("query_text = %v, want %q", detail.QueryText, "What is RAG?")
	}
	if detail.LLMModel == nil || *detail.LLMModel != "llama3.1" {
		t.Errorf("llm_model = %v, want llama3.1", detail.LLMModel)
	}
	if detail.LLMLatency == nil || *detail.LLMLatency != 1500*time.Millisecond {
		t.Errorf("llm_latency = %v, want 1.5s", detail.LLMLatency)
	}
	if detail.VDBLatency == nil || *detail.VDBLatency != 250*time.Millisecond {
		t.Errorf("vdb_latency = %v, want 250ms", detail.VDBLatency)
	}
	if detail.VDBIndex == nil || *detail.VDBIndex != "docs" {
		t.Errorf("vdb_index = %v, want docs", detail.VDBIndex)
	}
	if got, ok := detail.Info["documents"].(float64); !ok || got != 2 {
		t.Errorf("info[documents] = %v, want 2", detail.Info["documents"])
	}

	// Status is advisory: last write wins.
	status, err := repo.GetStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Status != StatusVDBDone {
		t.Errorf("status = %v, want %v", status.Status, StatusVDBDone)
	}
}

func TestQueryRepo_ApplyPatch_WithoutStatusLeavesStatusUnset(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()
	id := uuid.New()

	if err := repo.ApplyPatch(ctx, DetailPatch{QueryID: id, VDBName: strp("qdrant")}); err != nil {
		t.Fatalf("ApplyPatch() error = %v", err)
	}

	if _, err := repo.GetStatus(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStatus() error = %v, want ErrNotFound", err)
	}
}

func TestQueryRepo_ApplyPatch_RequiresQueryID(t *testing.T) {
	repo := newTestDB(t)

	if err := repo.ApplyPatch(context.Background(), DetailPatch{}); err == nil {
		t.Error("ApplyPatch() expected error for nil query id, got nil")
	}
}

func TestQueryRepo_GetDetail_NotFound(t *testing.T) {
	repo := newTestDB(t)

	detail, err := repo.GetDetail(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDetail() error = %v, want ErrNotFound", err)
	}
	if detail != nil {
		t.Errorf("GetDetail() = %v, want nil", detail)
	}
}
