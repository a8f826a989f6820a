package usecase

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"text/template"

	"ragchat/internal/adapter/analyzer"
	"ragchat/internal/domain"
)

//go:embed prompts/qa.tmpl
var qaTemplate string

// PromptBuilder renders retrieved chunks and a question into a single prompt.
type PromptBuilder struct {
	tmpl *template.Template

	// budget caps the approximate context size in tokens; 0 means no cap.
	budget int
}

type promptData struct {
	Question string
	Chunks   []domain.ScoredChunk
}

// NewPromptBuilder parses the embedded QA template.
func NewPromptBuilder(budget int) (*PromptBuilder, error) {
	return NewPromptBuilderFromTemplate(qaTemplate, budget)
}

// NewPromptBuilderFromTemplate parses a custom template. The template sees
// .Question and .Chunks ([]domain.ScoredChunk).
func NewPromptBuilderFromTemplate(text string, budget int) (*PromptBuilder, error) {
	tmpl, err := template.New("qa").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: prompt template: %w", domain.ErrInvalidInput, err)
	}
	return &PromptBuilder{tmpl: tmpl, budget: budget}, nil
}

// Build returns the prompt and the chunks that made it into the context.
func (b *PromptBuilder) Build(question string, chunks []domain.ScoredChunk) (string, []domain.ScoredChunk, error) {
	used := mergeOverlapping(b.pack(chunks))

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, promptData{Question: question, Chunks: used}); err != nil {
		return "", nil, fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), used, nil
}

// pack keeps chunks in score order until the token budget is used up.
// The best chunk is always kept.
func (b *PromptBuilder) pack(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	if b.budget <= 0 || len(chunks) == 0 {
		return chunks
	}

	selected := make([]domain.ScoredChunk, 0, len(chunks))
	usedTokens := 0
	for i, c := range chunks {
		tokens := analyzer.CountTokens(c.Chunk.Text)
		if i > 0 && usedTokens+tokens > b.budget {
			continue
		}
		selected = append(selected, c)
		usedTokens += tokens
	}
	return selected
}

// mergeOverlapping joins chunks that are neighbouring windows of the same
// page so the overlap is not repeated in the prompt. Output keeps the order
// of each group's best chunk.
func mergeOverlapping(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	if len(chunks) <= 1 {
		return chunks
	}

	type pageKey struct {
		source string
		page   int
	}
	groups := make(map[pageKey][]domain.ScoredChunk)
	var order []pageKey
	for _, c := range chunks {
		k := pageKey{c.Chunk.Source, c.Chunk.Page}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	result := make([]domain.ScoredChunk, 0, len(chunks))
	for _, k := range order {
		group := groups[k]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Chunk.Offset < group[j].Chunk.Offset
		})

		merged := group[0]
		for _, next := range group[1:] {
			mergedText := []rune(merged.Chunk.Text)
			end := merged.Chunk.Offset + len(mergedText)
			if next.Chunk.Offset > end {
				result = append(result, merged)
				merged = next
				continue
			}
			nextText := []rune(next.Chunk.Text)
			if skip := end - next.Chunk.Offset; skip < len(nextText) {
				merged.Chunk.Text = string(append(mergedText, nextText[skip:]...))
			}
			if next.Score > merged.Score {
				merged.Score = next.Score
			}
		}
		result = append(result, merged)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}
