package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationTimeout is returned when the LLM does not answer within its deadline.
	ErrGenerationTimeout = errors.New("llm generation timed out")
	// ErrEmptyQuery is returned for blank query text.
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrInvalidLimit is returned for a non-positive document limit.
	ErrInvalidLimit = errors.New("limit must be greater than 0")
)

// RetrievalError wraps a vector store failure.
type RetrievalError struct {
	Collection string
	// Transient marks failures worth retrying.
	Transient bool
	// Throttled marks failures caused by the store shedding load.
	Throttled bool
	Err       error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval from %q failed: %v", e.Collection, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// GenerationError wraps a non-timeout LLM failure.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with model %q failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an invalid runtime setting.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
