package port

import (
	"context"

	"ragchat/internal/domain"
)

// Retriever defines the interface for searching indexed content.
type Retriever interface {
	// Search returns the top-k chunks for the query, highest score first.
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// VectorIndex is a loaded, read-only vector index.
type VectorIndex interface {
	Query(ctx context.Context, embedder Embedder, question string, k int) ([]domain.ScoredChunk, error)
	Stats() domain.IndexStats
}

// IndexProvider hands out the current vector index.
type IndexProvider interface {
	// Current returns the index together with the generation it is served
	// under. The generation changes whenever a different index is served.
	// The error wraps domain.ErrNotFound when nothing has been built yet.
	Current() (VectorIndex, uint64, error)
}
