package port

import (
	"context"

	"ragchat/internal/domain"
)

// LLM represents a hosted language model for text generation.
type LLM interface {
	// Complete sends a single prompt and returns the parsed completion.
	Complete(ctx context.Context, prompt string) (*domain.Completion, error)

	// ModelName returns the name of the model.
	ModelName() string
}
