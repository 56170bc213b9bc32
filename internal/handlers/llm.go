package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cat-backend/internal/contextutil"
	"cat-backend/internal/rag"
)

// SettingsStore holds the runtime-adjustable LLM settings.
type SettingsStore interface {
	Snapshot() rag.Settings
	SetModel(model string) (rag.Settings, error)
	SetPromptTemplate(text string) (rag.Settings, error)
}

// ModelCatalog reports which models the LLM backend serves.
type ModelCatalog interface {
	HasModel(ctx context.Context, name string) (bool, error)
}

// LLMHandler reads and switches the model and prompt template.
type LLMHandler struct {
	settings SettingsStore
	// catalog is nil when model names are not checked.
	catalog ModelCatalog
}

// NewLLMHandler creates a new LLMHandler. A nil catalog accepts any model name.
func NewLLMHandler(settings SettingsStore, catalog ModelCatalog) *LLMHandler {
	return &LLMHandler{settings: settings, catalog: catalog}
}

// ModelResponse reports the active model.
type ModelResponse struct {
	Model    string `json:"llm_model"`
	Previous string `json:"previous_llm_model,omitempty"`
}

// PromptResponse reports the active prompt template.
type PromptResponse struct {
	Template string `json:"prompt_template"`
	Previous string `json:"previous_prompt_template,omitempty"`
}

// PromptRequest is the optional JSON body of PUT /llm/prompt.
type PromptRequest struct {
	Template string `json:"prompt_template"`
}

// GetModel handles GET /llm/model.
func (h *LLMHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, ModelResponse{Model: h.settings.Snapshot().Model})
}

// SetModel handles PUT /llm/model?llm_model=.
func (h *LLMHandler) SetModel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	model := strings.TrimSpace(r.URL.Query().Get("llm_model"))

	if model != "" && h.catalog != nil {
		ok, err := h.catalog.HasModel(ctx, model)
		if err != nil {
			logger.ErrorContext(ctx, "failed to list llm models", "error", err)
			writeError(ctx, w, http.StatusBadGateway, "llm backend unavailable")
			return
		}
		if !ok {
			logger.WarnContext(ctx, "unknown llm model", "model", model)
			writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("model %q is not served by the llm backend", model))
			return
		}
	}

	prev, err := h.settings.SetModel(model)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "llm model switched", "from", prev.Model, "to", model)
	writeJSON(ctx, w, http.StatusOK, ModelResponse{Model: model, Previous: prev.Model})
}

// GetPrompt handles GET /llm/prompt.
func (h *LLMHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	template := ""
	if t := h.settings.Snapshot().Template; t != nil {
		template = t.String()
	}
	writeJSON(r.Context(), w, http.StatusOK, PromptResponse{Template: template})
}

// SetPrompt handles PUT /llm/prompt. The template comes from the
// prompt_template query parameter or, failing that, a JSON body.
func (h *LLMHandler) SetPrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	text := r.URL.Query().Get("prompt_template")
	if text == "" && r.Body != nil {
		var req PromptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
			return
		}
		text = req.Template
	}

	prev, err := h.settings.SetPromptTemplate(text)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	previous := ""
	if prev.Template != nil {
		previous = prev.Template.String()
	}
	logger.InfoContext(ctx, "prompt template switched", "chars", len(text))
	writeJSON(ctx, w, http.StatusOK, PromptResponse{Template: text, Previous: previous})
}
