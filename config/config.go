package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the chat service.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	LLM       LLMConfig       `yaml:"llm"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DataConfig points at the PDF source directory.
type DataConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// IngestConfig holds chunking configuration.
type IngestConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`    // in characters
	ChunkOverlap int  `yaml:"chunk_overlap"` // in characters, must be < chunk_size
	SkipInvalid  bool `yaml:"skip_invalid"`  // skip unreadable PDFs instead of failing the batch
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "hash", "openai"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"` // 0 uses the provider or model default
	BatchSize int    `yaml:"batch_size"`
}

// IndexConfig holds vector index persistence configuration.
type IndexConfig struct {
	Dir       string `yaml:"dir"`
	SecretEnv string `yaml:"secret_env"` // HMAC key for the index checksum; plain SHA-256 when unset
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK          int           `yaml:"top_k"`
	ContextTokens int           `yaml:"context_tokens"` // approximate prompt context budget, 0 = unlimited
	CacheSize     int           `yaml:"cache_size"`     // 0 disables the query cache
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// LLMConfig holds the hosted model configuration.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`

	// PromptTemplate is a text/template file replacing the built-in QA prompt.
	PromptTemplate string `yaml:"prompt_template"`
}

// ServerConfig holds HTTP chat surface configuration.
type ServerConfig struct {
	Addr       string        `yaml:"addr"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:      "data",
			Includes: []string{"*.pdf"},
		},
		Ingest: IngestConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			BaseURL:   "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 64,
		},
		Index: IndexConfig{
			Dir:       "vectorstore",
			SecretEnv: "RAGCHAT_INDEX_SECRET",
		},
		Retrieve: RetrieveConfig{
			TopK:      1,
			CacheSize: 128,
			CacheTTL:  5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    "groq",
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			APIKeyEnv:   "GROQ_API_KEY",
			Temperature: 0.3,
			MaxTokens:   256,
			Timeout:     60 * time.Second,
		},
		Server: ServerConfig{
			Addr:       ":5000",
			SessionTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragchat.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragchat.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragchat", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnv reads a .env file from dir if one exists. Variables already set in
// the process environment win.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides selected settings from RAGCHAT_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("RAGCHAT_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("RAGCHAT_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("RAGCHAT_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("RAGCHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RAGCHAT_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// ResolvePaths makes relative data, index and template paths relative to root.
func (c *Config) ResolvePaths(root string) {
	if c.Data.Dir != "" && !filepath.IsAbs(c.Data.Dir) {
		c.Data.Dir = filepath.Join(root, c.Data.Dir)
	}
	if c.Index.Dir != "" && !filepath.IsAbs(c.Index.Dir) {
		c.Index.Dir = filepath.Join(root, c.Index.Dir)
	}
	if c.LLM.PromptTemplate != "" && !filepath.IsAbs(c.LLM.PromptTemplate) {
		c.LLM.PromptTemplate = filepath.Join(root, c.LLM.PromptTemplate)
	}
}

// Validate checks invariants that the pipeline relies on.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, %d), got %d", c.Ingest.ChunkSize, c.Ingest.ChunkOverlap)
	}
	if c.Retrieve.ContextTokens < 0 {
		return fmt.Errorf("retrieve.context_tokens must not be negative, got %d", c.Retrieve.ContextTokens)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be 0-2, got %f", c.LLM.Temperature)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding.dimension must not be negative, got %d", c.Embedding.Dimension)
	}
	switch c.Embedding.Provider {
	case "hash", "openai":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	return nil
}

// IndexSecret returns the index checksum key from the environment variable
// named by index.secret_env; nil selects plain SHA-256.
func (c *Config) IndexSecret() []byte {
	if c.Index.SecretEnv == "" {
		return nil
	}
	if v := os.Getenv(c.Index.SecretEnv); v != "" {
		return []byte(v)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexHash computes a hash of index-relevant configuration.
// A persisted index whose hash differs was built with other chunking or
// embedding settings and should be rebuilt.
func (c *Config) IndexHash() string {
	relevant := struct {
		ChunkSize    int    `json:"chunk_size"`
		ChunkOverlap int    `json:"chunk_overlap"`
		EmbProvider  string `json:"emb_provider"`
		EmbModel     string `json:"emb_model"`
		EmbDimension int    `json:"emb_dimension"`
	}{
		ChunkSize:    c.Ingest.ChunkSize,
		ChunkOverlap: c.Ingest.ChunkOverlap,
		EmbProvider:  c.Embedding.Provider,
		EmbModel:     c.Embedding.Model,
		EmbDimension: c.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(indexDir string) string {
	return filepath.Join(indexDir, "index.db")
}

// EnsureIndexDir ensures the index directory exists.
func EnsureIndexDir(indexDir string) error {
	return os.MkdirAll(indexDir, 0755)
}
