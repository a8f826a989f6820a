package store

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ragchat/internal/domain"
	"ragchat/internal/port"
)

var _ port.VectorIndex = (*Index)(nil)

// Index is a loaded vector index. It is read-only and safe for concurrent use.
// Search is brute force over all entries.
type Index struct {
	path    string
	header  Header
	entries []entry // sorted by chunk ID
}

type entry struct {
	chunk  domain.Chunk
	vector []float32
}

// Query embeds question with embedder and returns the k most similar chunks.
// The embedder must match the one the index was built with.
func (x *Index) Query(ctx context.Context, embedder port.Embedder, question string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if embedder.ModelName() != x.header.Model || embedder.Dimension() != x.header.Dimension {
		return nil, fmt.Errorf("%w: index built with %s/%d, query embedder is %s/%d",
			domain.ErrIndexUnavailable, x.header.Model, x.header.Dimension, embedder.ModelName(), embedder.Dimension())
	}

	vecs, err := embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vecs))
	}

	return x.Search(vecs[0], k)
}

// Search returns the k entries most similar to vec by cosine similarity,
// highest first. Equal scores are ordered by chunk ID. k larger than the
// index returns every entry.
func (x *Index) Search(vec []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(vec) != x.header.Dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrInvalidInput, len(vec), x.header.Dimension)
	}

	scores := make([]domain.ScoredChunk, len(x.entries))
	for i, e := range x.entries {
		scores[i] = domain.ScoredChunk{Chunk: e.chunk, Score: cosineSimilarity(vec, e.vector)}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Chunk.ID < scores[j].Chunk.ID
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

func (x *Index) Len() int {
	return len(x.entries)
}

func (x *Index) Header() Header {
	return x.header
}

func (x *Index) Stats() domain.IndexStats {
	return domain.IndexStats{
		Path:          x.path,
		SchemaVersion: x.header.SchemaVersion,
		Model:         x.header.Model,
		Dimension:     x.header.Dimension,
		ConfigHash:    x.header.ConfigHash,
		Chunks:        len(x.entries),
		Sources:       x.header.Sources,
		BuiltAt:       x.header.BuiltAt,
	}
}

// cosineSimilarity calculates the cosine similarity between two vectors.
// A zero vector scores 0 against everything.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
