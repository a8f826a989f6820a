package embedding

import (
	"fmt"
	"os"
	"time"

	"ragchat/config"
	"ragchat/internal/port"
)

// DefaultHashDimension is the hash embedder size when none is configured.
const DefaultHashDimension = 384

// FromConfig builds the configured embedder. A zero dimension means the
// provider default: DefaultHashDimension for "hash" and the model's native
// size for "openai". The API key is read from cfg.APIKeyEnv.
func FromConfig(cfg config.EmbeddingConfig, timeout time.Duration) (port.Embedder, error) {
	switch cfg.Provider {
	case "hash":
		dim := cfg.Dimension
		if dim == 0 {
			dim = DefaultHashDimension
		}
		return NewHashEmbedder(dim)
	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    os.Getenv(cfg.APIKeyEnv),
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			BatchSize: cfg.BatchSize,
			Timeout:   timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
