package usecase

import (
	"context"
	"fmt"
	"time"

	"ragchat/internal/adapter/cache"
	"ragchat/internal/adapter/store"
	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

// IngestUseCase rebuilds the vector index from a directory of PDFs.
type IngestUseCase struct {
	loader   port.DocumentLoader
	chunker  port.Chunker
	embedder port.Embedder
	holder   *store.Holder
	cache    *cache.QueryCache
	opts     store.BuildOptions
}

// NewIngestUseCase creates an ingest use case writing to holder's path.
// queryCache may be nil.
func NewIngestUseCase(
	loader port.DocumentLoader,
	chunker port.Chunker,
	embedder port.Embedder,
	holder *store.Holder,
	queryCache *cache.QueryCache,
	opts store.BuildOptions,
) *IngestUseCase {
	return &IngestUseCase{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		holder:   holder,
		cache:    queryCache,
		opts:     opts,
	}
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Documents int
	Chunks    int
	Stats     domain.IndexStats
	Elapsed   time.Duration
}

// Run loads, chunks, embeds and persists everything under dir, replacing the
// previous index. progress may be nil.
func (u *IngestUseCase) Run(ctx context.Context, dir string, progress func(done, total int)) (*IngestResult, error) {
	start := time.Now()

	docs, err := u.loader.Load(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	chunks, err := u.chunker.Chunk(docs)
	if err != nil {
		return nil, fmt.Errorf("chunk documents: %w", err)
	}

	logger.Info("generating embeddings", "chunks", len(chunks), "model", u.embedder.ModelName())

	opts := u.opts
	opts.Progress = progress
	idx, err := store.Build(ctx, u.holder.Path(), chunks, u.embedder, opts)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	u.holder.Set(idx)
	if u.cache != nil {
		u.cache.Invalidate()
	}

	result := &IngestResult{
		Documents: len(docs),
		Chunks:    len(chunks),
		Stats:     idx.Stats(),
		Elapsed:   time.Since(start),
	}
	logger.Info("vector store built",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"path", result.Stats.Path,
		"elapsed", result.Elapsed.Round(time.Millisecond))

	return result, nil
}
