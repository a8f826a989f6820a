package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"ragchat/internal/adapter/analyzer"
	"ragchat/internal/domain"
	"ragchat/internal/port"
)

var _ port.Embedder = (*HashEmbedder)(nil)

// shingleWeight scales term-pair features relative to single terms.
const shingleWeight = 0.5

// HashEmbedder maps text to a fixed-size vector by feature hashing its terms
// and adjacent term pairs. It is deterministic, needs no network, and gives
// lexical rather than semantic similarity.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int) (*HashEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	return &HashEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(),
	}, nil
}

// Embed returns an L2-normalized vector per text. Text with no terms maps to
// the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dimension)

	tokens := e.tokenizer.Tokenize(text)
	for _, t := range tokens {
		e.add(vec, t, 1)
	}
	for _, s := range e.tokenizer.Shingles(tokens) {
		e.add(vec, s, shingleWeight)
	}

	normalize(vec)
	return vec
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return fmt.Sprintf("hash-%d", e.dimension)
}
