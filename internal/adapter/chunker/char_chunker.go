package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

var _ port.Chunker = (*CharChunker)(nil)

// CharChunker splits text into windows of at most size runes, each window
// starting size-overlap runes after the previous one.
type CharChunker struct {
	size    int
	overlap int
}

func NewCharChunker(size, overlap int) (*CharChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidInput, size, overlap)
	}
	return &CharChunker{size: size, overlap: overlap}, nil
}

// Chunk splits every document. Pages that are empty or whitespace-only
// produce no chunks.
func (c *CharChunker) Chunk(docs []domain.Document) ([]domain.Chunk, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to chunk", domain.ErrInvalidInput)
	}

	logger.Info("creating text chunks", "documents", len(docs), "size", c.size, "overlap", c.overlap)

	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.chunkDocument(doc)...)
	}

	logger.Info("created text chunks", "chunks", len(chunks))
	return chunks, nil
}

func (c *CharChunker) chunkDocument(doc domain.Document) []domain.Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	text := []rune(doc.Text)
	step := c.size - c.overlap

	var chunks []domain.Chunk
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}

		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         generateChunkID(doc.Source, doc.Page, idx),
			Source:     doc.Source,
			Page:       doc.Page,
			ChunkIndex: idx,
			Offset:     start,
			Text:       string(text[start:end]),
		})

		if end == len(text) {
			break
		}
	}
	return chunks
}

// ExpectedChunks returns how many chunks a text of n runes splits into.
func (c *CharChunker) ExpectedChunks(n int) int {
	if n <= 0 {
		return 0
	}
	if n <= c.size {
		return 1
	}
	step := c.size - c.overlap
	return (n - c.overlap + step - 1) / step
}

func generateChunkID(source string, page, index int) string {
	data := fmt.Sprintf("%s:%d:%d", source, page, index)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
