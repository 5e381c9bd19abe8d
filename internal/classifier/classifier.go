// Package classifier implements the ranker's Classifier on top of a text
// generation model.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newscurator/internal/ranker"
)

// TextModel generates a completion for a prompt.
type TextModel interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

const DefaultMaxDescription = 100

// LLMClassifier asks a TextModel to pick and categorize candidates.
type LLMClassifier struct {
	model          TextModel
	maxDescription int
	log            *slog.Logger
}

func New(model TextModel, log *slog.Logger) *LLMClassifier {
	if log == nil {
		log = slog.Default()
	}
	return &LLMClassifier{
		model:          model,
		maxDescription: DefaultMaxDescription,
		log:            log.With("component", "classifier", "model", model.Name()),
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, req ranker.Request) ([]ranker.Pick, error) {
	prompt := BuildPrompt(req, c.maxDescription)

	start := time.Now()
	text, err := c.model.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", c.model.Name(), err)
	}
	c.log.Debug("classifier response received",
		"candidates", len(req.Candidates),
		"response_len", len(text),
		"elapsed", time.Since(start),
	)

	picks, err := ParsePicks(text)
	if err != nil {
		return nil, err
	}
	return picks, nil
}
