// Package embedding provides text embedders for indexing and querying.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ragchat/internal/adapter/llm"
	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

var _ port.Embedder = (*OpenAIEmbedder)(nil)

const (
	defaultBatchSize = 64
	maxBatchSize     = 2048
)

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int // 0 derives the dimension from the model name
	BatchSize int
	Timeout   time.Duration
}

// OpenAIEmbedder calls a hosted embeddings API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	batchSize int
}

// NewOpenAIEmbedder creates an embedder. A missing credential fails with
// domain.ErrAuthentication.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("embeddings: %w: API key is required", domain.ErrAuthentication)
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = modelDimension(cfg.Model)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchSize > maxBatchSize {
		cfg.BatchSize = maxBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	occfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		occfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	occfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(occfg),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
	}, nil
}

func modelDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large", "jina-embeddings-v3":
		return 1024
	case "all-minilm":
		return 384
	default:
		return 1536
	}
}

// Embed returns one vector per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dimension
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, llm.ClassifyError("embeddings", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, malformed(fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, malformed(fmt.Errorf("embedding index %d out of range", d.Index))
		}
		if len(d.Embedding) != e.dimension {
			return nil, malformed(fmt.Errorf("embedding has dimension %d, want %d", len(d.Embedding), e.dimension))
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, malformed(fmt.Errorf("missing embedding for input %d", i))
		}
	}

	logger.Debug("embedded batch", "model", e.model, "inputs", len(texts), "tokens", resp.Usage.TotalTokens)
	return out, nil
}

func malformed(err error) error {
	return &domain.ProviderError{Provider: "embeddings", Kind: domain.ProviderMalformed, Err: err}
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
