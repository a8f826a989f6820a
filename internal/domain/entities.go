package domain

import "time"

// Document is one page of text extracted from a source file.
type Document struct {
	Source string
	Page   int
	Text   string
}

// Chunk is a bounded window of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Page       int    `json:"page"`
	ChunkIndex int    `json:"chunk_index"`
	Offset     int    `json:"offset"`
	Text       string `json:"text"`
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completion is the parsed response of an LLM call.
// Result is nil when the upstream response carried no usable text.
type Completion struct {
	Result       *string
	Model        string
	FinishReason string
	PromptTokens int
	OutputTokens int
}

type AnswerResult struct {
	Question string
	Answer   string
	Sources  []ScoredChunk
	Fallback bool
}

// IndexStats describes a persisted vector index.
type IndexStats struct {
	Path          string    `json:"path"`
	SchemaVersion int       `json:"schema_version"`
	Model         string    `json:"model"`
	Dimension     int       `json:"dimension"`
	ConfigHash    string    `json:"config_hash"`
	Chunks        int       `json:"chunks"`
	Sources       int       `json:"sources"`
	BuiltAt       time.Time `json:"built_at"`
}
