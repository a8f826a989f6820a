package port

import "ragchat/internal/domain"

// Chunker splits page documents into overlapping text chunks.
type Chunker interface {
	Chunk(docs []domain.Document) ([]domain.Chunk, error)
}
