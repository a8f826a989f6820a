package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ingest.ChunkSize != 500 {
		t.Errorf("expected ChunkSize=500, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("expected ChunkOverlap=50, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieve.TopK != 1 {
		t.Errorf("expected TopK=1, got %d", cfg.Retrieve.TopK)
	}
	if cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("expected groq llama model, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 256 {
		t.Errorf("expected MaxTokens=256, got %d", cfg.LLM.MaxTokens)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ragchat.yaml")

	content := `
ingest:
  chunk_size: 256
  chunk_overlap: 16
retrieve:
  top_k: 4
  cache_ttl: 30s
llm:
  timeout: 10s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ingest.ChunkSize != 256 {
		t.Errorf("expected ChunkSize=256, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Retrieve.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.CacheTTL != 30*time.Second {
		t.Errorf("expected CacheTTL=30s, got %v", cfg.Retrieve.CacheTTL)
	}
	if cfg.LLM.Timeout != 10*time.Second {
		t.Errorf("expected Timeout=10s, got %v", cfg.LLM.Timeout)
	}
	// untouched sections keep defaults
	if cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("expected default model, got %s", cfg.LLM.Model)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ragchat.yaml")
	if err := os.WriteFile(configPath, []byte("ingest: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".ragchat"), 0755); err != nil {
		t.Fatal(err)
	}

	content := `
server:
  addr: ":8080"
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".ragchat", "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected Addr=:8080, got %s", cfg.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Ingest.ChunkSize = 0 }},
		{"overlap equals size", func(c *Config) { c.Ingest.ChunkOverlap = c.Ingest.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Ingest.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.Retrieve.TopK = 0 }},
		{"hot temperature", func(c *Config) { c.LLM.Temperature = 3 }},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"negative dimension", func(c *Config) { c.Embedding.Dimension = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RAGCHAT_DATA_DIR", "/srv/pdfs")
	t.Setenv("RAGCHAT_LLM_MODEL", "llama-3.3-70b-versatile")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Data.Dir != "/srv/pdfs" {
		t.Errorf("expected data dir override, got %s", cfg.Data.Dir)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" {
		t.Errorf("expected model override, got %s", cfg.LLM.Model)
	}
}

func TestLoadEnv(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("RAGCHAT_TEST_KEY=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	os.Unsetenv("RAGCHAT_TEST_KEY")
	t.Cleanup(func() { os.Unsetenv("RAGCHAT_TEST_KEY") })

	if err := LoadEnv(tmpDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("RAGCHAT_TEST_KEY"); got != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", got)
	}

	if err := LoadEnv(t.TempDir()); err != nil {
		t.Errorf("missing .env should not be an error: %v", err)
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.Dir = "/abs/index"
	cfg.ResolvePaths("/home/user/app")

	if cfg.Data.Dir != filepath.Join("/home/user/app", "data") {
		t.Errorf("unexpected data dir %s", cfg.Data.Dir)
	}
	if cfg.Index.Dir != "/abs/index" {
		t.Errorf("absolute index dir should be kept, got %s", cfg.Index.Dir)
	}
}

func TestIndexHash(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	if a.IndexHash() != b.IndexHash() {
		t.Error("identical configs should hash equally")
	}

	b.LLM.Model = "other"
	if a.IndexHash() != b.IndexHash() {
		t.Error("LLM settings must not affect the index hash")
	}

	b.Ingest.ChunkOverlap = 10
	if a.IndexHash() == b.IndexHash() {
		t.Error("chunk settings must affect the index hash")
	}
}

func TestIndexDBPath(t *testing.T) {
	path := IndexDBPath("/var/lib/ragchat/vectorstore")
	expected := filepath.Join("/var/lib/ragchat/vectorstore", "index.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragchat.yaml")

	cfg := DefaultConfig()
	cfg.Retrieve.TopK = 3
	cfg.LLM.Timeout = 15 * time.Second
	cfg.Data.Excludes = []string{"drafts/**"}
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("round trip mismatch:\nsaved  %+v\nloaded %+v", cfg, loaded)
	}
}

func TestIndexSecret(t *testing.T) {
	cfg := DefaultConfig()

	t.Setenv("RAGCHAT_INDEX_SECRET", "")
	if got := cfg.IndexSecret(); got != nil {
		t.Errorf("expected nil secret, got %q", got)
	}

	t.Setenv("RAGCHAT_INDEX_SECRET", "k3y")
	if got := string(cfg.IndexSecret()); got != "k3y" {
		t.Errorf("expected secret from env, got %q", got)
	}

	cfg.Index.SecretEnv = ""
	if got := cfg.IndexSecret(); got != nil {
		t.Errorf("expected nil secret without secret_env, got %q", got)
	}
}
