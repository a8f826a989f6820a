package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragchat/internal/adapter/analyzer"
	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

// FallbackAnswer is returned when the model responds without usable text.
const FallbackAnswer = "No Response from the model"

// LLMFactory builds the model client for one answer.
type LLMFactory func() (port.LLM, error)

// AnswerUseCase answers a question from the indexed documents.
type AnswerUseCase struct {
	retriever *RetrieveUseCase
	newLLM    LLMFactory
	prompts   *PromptBuilder
	topK      int
}

func NewAnswerUseCase(retriever *RetrieveUseCase, newLLM LLMFactory, prompts *PromptBuilder, topK int) *AnswerUseCase {
	if topK <= 0 {
		topK = 1
	}
	return &AnswerUseCase{
		retriever: retriever,
		newLLM:    newLLM,
		prompts:   prompts,
		topK:      topK,
	}
}

// Answer loads the index, builds the model client, retrieves the top chunks
// for question and asks the model. It returns the answer together with the
// chunks placed in the prompt.
//
// Errors wrap domain.ErrInvalidInput for a blank question,
// domain.ErrIndexUnavailable when no index can be loaded, and
// domain.ErrLLMUnavailable when the model client cannot be built. Upstream
// failures are returned as *domain.ProviderError or domain.ErrAuthentication.
func (u *AnswerUseCase) Answer(ctx context.Context, question string) (*domain.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	start := time.Now()

	snap, err := u.retriever.Open()
	if err != nil {
		return nil, err
	}

	model, err := u.newLLM()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	retrieved, err := snap.Search(ctx, question, u.topK)
	if err != nil {
		return nil, err
	}

	prompt, used, err := u.prompts.Build(question, retrieved)
	if err != nil {
		return nil, err
	}

	logger.Debug("sending prompt",
		"model", model.ModelName(),
		"chunks", len(used),
		"approx_tokens", analyzer.CountTokens(prompt))

	comp, err := model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	result := &domain.AnswerResult{
		Question: question,
		Sources:  used,
	}
	if comp == nil || comp.Result == nil || strings.TrimSpace(*comp.Result) == "" {
		logger.Warn("model returned no usable text", "model", model.ModelName())
		result.Answer = FallbackAnswer
		result.Fallback = true
	} else {
		result.Answer = strings.TrimSpace(*comp.Result)
	}

	logger.Info("answered question",
		"chunks", len(used),
		"fallback", result.Fallback,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return result, nil
}
