package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/prompts"
)

// Extractor renders the extraction prompt for an utterance and returns the
// service's raw response. It does no parsing.
type Extractor struct {
	client     Client
	prompts    *prompts.Set
	logger     *slog.Logger
	categories []string
}

// NewExtractor creates an extractor that lists categories in every prompt.
func NewExtractor(client Client, set *prompts.Set, categories []string, logger *slog.Logger) *Extractor {
	if set == nil {
		set = prompts.MustDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client:     client,
		prompts:    set,
		categories: append([]string(nil), categories...),
		logger:     logger.With("component", "extractor"),
	}
}

// Extract asks the service to describe utterance as an expense. Every failure
// matches common.ErrServiceUnavailable.
func (e *Extractor) Extract(ctx context.Context, utterance string) (string, error) {
	prompt, err := e.prompts.Render(prompts.ParseExpense, prompts.ParseData{
		Text:       utterance,
		Categories: e.categories,
	})
	if err != nil {
		return "", common.Unavailable(fmt.Errorf("failed to render prompt: %w", err))
	}

	start := time.Now()
	text, err := e.client.Generate(ctx, prompt)
	if err != nil {
		e.logger.Warn("text generation failed",
			"error", err,
			"duration", time.Since(start))
		return "", common.Unavailable(err)
	}

	e.logger.Debug("text generation complete",
		"duration", time.Since(start),
		"response_length", len(text))
	return text, nil
}
