package cli

import (
	"fmt"
	"os"

	"ragchat/config"
	"ragchat/internal/adapter/cache"
	"ragchat/internal/adapter/embedding"
	"ragchat/internal/adapter/llm"
	"ragchat/internal/adapter/store"
	"ragchat/internal/port"
	"ragchat/internal/usecase"
)

func newHolder(cfg *config.Config) *store.Holder {
	return store.NewHolder(config.IndexDBPath(cfg.Index.Dir), store.LoadOptions{Secret: cfg.IndexSecret()})
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	return embedding.FromConfig(cfg.Embedding, cfg.LLM.Timeout)
}

// llmFactory builds a fresh client per answer so a key added to the
// environment is picked up without a restart.
func llmFactory(cfg *config.Config) usecase.LLMFactory {
	return func() (port.LLM, error) {
		return llm.New(llm.Config{
			Provider:    cfg.LLM.Provider,
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      os.Getenv(cfg.LLM.APIKeyEnv),
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		})
	}
}

func newQueryCache(cfg *config.Config) *cache.QueryCache {
	if cfg.Retrieve.CacheSize <= 0 {
		return nil
	}
	return cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)
}

func newPromptBuilder(cfg *config.Config) (*usecase.PromptBuilder, error) {
	if cfg.LLM.PromptTemplate == "" {
		return usecase.NewPromptBuilder(cfg.Retrieve.ContextTokens)
	}
	data, err := os.ReadFile(cfg.LLM.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	return usecase.NewPromptBuilderFromTemplate(string(data), cfg.Retrieve.ContextTokens)
}

// chatStack is everything needed to answer questions.
type chatStack struct {
	holder   *store.Holder
	embedder port.Embedder
	prompts  *usecase.PromptBuilder
	retrieve *usecase.RetrieveUseCase
	answer   *usecase.AnswerUseCase
}

func newChatStack(cfg *config.Config) (*chatStack, error) {
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	prompts, err := newPromptBuilder(cfg)
	if err != nil {
		return nil, err
	}

	holder := newHolder(cfg)
	retrieve := usecase.NewRetrieveUseCase(holder, emb, newQueryCache(cfg))

	return &chatStack{
		holder:   holder,
		embedder: emb,
		prompts:  prompts,
		retrieve: retrieve,
		answer:   usecase.NewAnswerUseCase(retrieve, llmFactory(cfg), prompts, cfg.Retrieve.TopK),
	}, nil
}

// staleReason reports whether the persisted index was built with settings
// other than the current ones. Errors loading the index yield "".
func staleReason(cfg *config.Config, holder *store.Holder, emb port.Embedder) string {
	idx, err := holder.Index()
	if err != nil {
		return ""
	}
	return store.RebuildReason(idx.Header(), cfg.IndexHash(), emb.ModelName(), emb.Dimension())
}
