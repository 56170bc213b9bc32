package rag

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Settings is an immutable snapshot of the runtime-adjustable LLM settings.
type Settings struct {
	Model    string
	Template *PromptTemplate
}

// Runtime holds the current Settings. Readers take a snapshot per request;
// writers publish a whole new value, so a request never sees a model from one
// update paired with a template from another.
type Runtime struct {
	mu      sync.Mutex
	current atomic.Pointer[Settings]
}

// NewRuntime validates the initial model and template.
func NewRuntime(model, template string) (*Runtime, error) {
	if strings.TrimSpace(model) == "" {
		return nil, &ConfigurationError{Field: "llm_model", Message: "must not be empty"}
	}
	tmpl, err := ParsePromptTemplate(template)
	if err != nil {
		return nil, err
	}

	r := &Runtime{}
	r.current.Store(&Settings{Model: model, Template: tmpl})
	return r, nil
}

// Snapshot returns the settings in effect now.
func (r *Runtime) Snapshot() Settings {
	return *r.current.Load()
}

// SetModel switches the model and returns the previous settings.
// On error the current settings stay in effect.
func (r *Runtime) SetModel(model string) (Settings, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Settings{}, &ConfigurationError{Field: "llm_model", Message: "must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current.Load()
	r.current.Store(&Settings{Model: model, Template: prev.Template})
	return *prev, nil
}

// SetPromptTemplate switches the template and returns the previous settings.
// On error the current settings stay in effect.
func (r *Runtime) SetPromptTemplate(text string) (Settings, error) {
	tmpl, err := ParsePromptTemplate(text)
	if err != nil {
		return Settings{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current.Load()
	r.current.Store(&Settings{Model: prev.Model, Template: tmpl})
	return *prev, nil
}
