package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks cat-backend/internal/rag Generator

import (
	"context"
	"errors"
	"time"

	"cat-backend/internal/contextutil"
	"cat-backend/internal/metrics"
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// AnswererOptions configures an Answerer.
type AnswererOptions struct {
	// Timeout bounds a single generation call.
	Timeout time.Duration
	Context ContextOptions
}

// Answerer turns a question and retrieved documents into an LLM answer.
type Answerer struct {
	generator Generator
	opts      AnswererOptions
}

// NewAnswerer creates an Answerer.
func NewAnswerer(generator Generator, opts AnswererOptions) *Answerer {
	return &Answerer{generator: generator, opts: opts}
}

// Answer renders the prompt from settings and calls the generator under the
// configured deadline. It returns ErrGenerationTimeout when the deadline
// passes and a *GenerationError for any other failure.
func (a *Answerer) Answer(ctx context.Context, queryText string, docs []Document, settings Settings) (string, time.Duration, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if settings.Template == nil {
		return "", 0, &ConfigurationError{Field: "prompt_template", Message: "not set"}
	}

	promptContext := BuildContext(docs, a.opts.Context)
	prompt := settings.Template.Render(queryText, promptContext)

	genCtx := ctx
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	logger.DebugContext(ctx, "generating answer",
		"model", settings.Model,
		"documents", len(docs),
		"context_chars", len(promptContext),
		"prompt_chars", len(prompt),
	)

	answer, latency, err := metrics.Measure(func() (string, error) {
		return a.generator.Generate(genCtx, settings.Model, prompt)
	})
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			logger.WarnContext(ctx, "llm generation timed out", "model", settings.Model, "timeout", a.opts.Timeout)
			return "", latency, ErrGenerationTimeout
		}
		logger.ErrorContext(ctx, "llm generation failed", "model", settings.Model, "error", err)
		return "", latency, &GenerationError{Model: settings.Model, Err: err}
	}

	logger.InfoContext(ctx, "answer generated", "model", settings.Model, "latency", latency, "answer_chars", len(answer))
	return answer, latency, nil
}
