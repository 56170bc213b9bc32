package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:11434/", "test-key", "test-model")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL != "http://localhost:11434" {
		t.Errorf("NewClient() BaseURL = %v, want http://localhost:11434", client.BaseURL)
	}
	if client.APIKey != "test-key" {
		t.Errorf("NewClient() APIKey = %v, want test-key", client.APIKey)
	}
	if client.Model != "test-model" {
		t.Errorf("NewClient() Model = %v, want test-model", client.Model)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
}

func chatReply(content string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ChatResponse{
			ID:     "test-id",
			Object: "chat.completion",
			Choices: []ChatChoice{
				{
					Index:        0,
					Message:      Message{Role: "assistant", Content: content},
					FinishReason: "stop",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestClient_Generate(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantErr    bool
		wantStatus int
	}{
		{
			name:  "successful generation",
			model: "llama3.1",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
					t.Error("missing Authorization header")
				}

				var req ChatRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				if req.Model != "llama3.1" {
					t.Errorf("expected model llama3.1, got %s", req.Model)
				}
				if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
					t.Errorf("expected a single user message, got %+v", req.Messages)
				}
				chatReply("RAG is retrieval-augmented generation.")(w, r)
			},
			wantReply: "RAG is retrieval-augmented generation.",
		},
		{
			name:  "empty model uses client default",
			model: "",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				var req ChatRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				if req.Model != "test-model" {
					t.Errorf("expected model test-model, got %s", req.Model)
				}
				chatReply("ok")(w, r)
			},
			wantReply: "ok",
		},
		{
			name: "no choices returned",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(ChatResponse{ID: "test-id", Choices: []ChatChoice{}})
			},
			wantErr: true,
		},
		{
			name: "server error",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("internal server error"))
			},
			wantErr:    true,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model")
			reply, err := client.Generate(context.Background(), tt.model, "What is RAG?")

			if tt.wantErr {
				if err == nil {
					t.Errorf("Generate() expected error, got nil")
				}
				if tt.wantStatus != 0 {
					var statusErr *StatusError
					if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.wantStatus {
						t.Errorf("Generate() error = %v, want StatusError %d", err, tt.wantStatus)
					}
				}
				return
			}

			if err != nil {
				t.Errorf("Generate() unexpected error: %v", err)
				return
			}

			if reply != tt.wantReply {
				t.Errorf("Generate() reply = %v, want %v", reply, tt.wantReply)
			}
		})
	}
}

func TestClient_Generate_GenerationSettings(t *testing.T) {
	tests := []struct {
		name            string
		maxTokens       int
		temperature     float32
		wantMaxTokens   int
		wantTemperature *float32
	}{
		{name: "server defaults", wantMaxTokens: 0},
		{name: "configured limits", maxTokens: 256, temperature: 0.2, wantMaxTokens: 256, wantTemperature: ptr(float32(0.2))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ChatRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode request: %v", err)
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(ChatResponse{Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "ok"}}}})
			}))
			defer server.Close()

			client := NewClient(server.URL, "", "test-model")
			client.MaxTokens = tt.maxTokens
			client.Temperature = tt.temperature

			if _, err := client.Generate(context.Background(), "other-model", "hi"); err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got.Model != "other-model" {
				t.Errorf("model = %q, want other-model", got.Model)
			}
			if got.MaxTokens != tt.wantMaxTokens {
				t.Errorf("max_tokens = %d, want %d", got.MaxTokens, tt.wantMaxTokens)
			}
			switch {
			case tt.wantTemperature == nil && got.Temperature != nil:
				t.Errorf("temperature = %v, want omitted", *got.Temperature)
			case tt.wantTemperature != nil && (got.Temperature == nil || *got.Temperature != *tt.wantTemperature):
				t.Errorf("temperature = %v, want %v", got.Temperature, *tt.wantTemperature)
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestClient_Generate_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server notices a client disconnect only once the body is consumed.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer server.CloseClientConnections()
	defer close(release)

	client := NewClient(server.URL, "", "test-model")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Generate(ctx, "", "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Generate() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Generate() returned after %v, want close to the 50ms deadline", elapsed)
	}
}

func TestClient_ChatWithMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req) // Ignore decode error in test

		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.MaxTokens != 100 {
			t.Errorf("expected max_tokens 100, got %d", req.MaxTokens)
		}
		if req.Temperature == nil || *req.Temperature != 0.7 {
			t.Errorf("expected temperature 0.7, got %v", req.Temperature)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization header should be omitted without an API key")
		}
		chatReply("Response")(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "test-model")

	messages := []Message{
		{Role: "system", Content: "You are a helpful assistant"},
		{Role: "user", Content: "Hello"},
	}

	params := ChatParams{
		Model:       "custom-model",
		MaxTokens:   100,
		Temperature: 0.7,
	}

	reply, err := client.ChatWithMessages(context.Background(), messages, params)
	if err != nil {
		t.Fatalf("ChatWithMessages() error = %v", err)
	}

	if reply != "Response" {
		t.Errorf("ChatWithMessages() reply = %v, want Response", reply)
	}
}
