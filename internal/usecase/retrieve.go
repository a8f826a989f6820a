package usecase

import (
	"context"
	"fmt"

	"ragchat/internal/adapter/cache"
	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

var _ port.Retriever = (*RetrieveUseCase)(nil)

// RetrieveUseCase searches the current index, consulting the query cache
// first when one is configured.
type RetrieveUseCase struct {
	provider port.IndexProvider
	embedder port.Embedder
	cache    *cache.QueryCache
}

// NewRetrieveUseCase creates a retrieve use case. queryCache may be nil.
func NewRetrieveUseCase(provider port.IndexProvider, embedder port.Embedder, queryCache *cache.QueryCache) *RetrieveUseCase {
	return &RetrieveUseCase{
		provider: provider,
		embedder: embedder,
		cache:    queryCache,
	}
}

// Snapshot is one loaded index pinned together with the generation it was
// served under. Cached results are filed under that generation.
type Snapshot struct {
	u   *RetrieveUseCase
	idx port.VectorIndex
	gen uint64
}

// Open loads the current index. A missing or unreadable index yields an
// error wrapping domain.ErrIndexUnavailable.
func (u *RetrieveUseCase) Open() (*Snapshot, error) {
	idx, gen, err := u.provider.Current()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return &Snapshot{u: u, idx: idx, gen: gen}, nil
}

// Search returns the k chunks of the pinned index closest to query.
func (s *Snapshot) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	qc := s.u.cache
	if qc != nil {
		if results, hit := qc.Get(query, k, s.gen); hit {
			logger.Debug("query cache hit", "k", k, "generation", s.gen)
			return results, nil
		}
	}

	results, err := s.idx.Query(ctx, s.u.embedder, query, k)
	if err != nil {
		return nil, err
	}

	if qc != nil {
		qc.Put(query, k, s.gen, results)
	}
	return results, nil
}

func (s *Snapshot) Stats() domain.IndexStats {
	return s.idx.Stats()
}

// Search returns the k chunks closest to query in the current index.
func (u *RetrieveUseCase) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	snap, err := u.Open()
	if err != nil {
		return nil, err
	}
	return snap.Search(ctx, query, k)
}

// Stats describes the current index.
func (u *RetrieveUseCase) Stats() (domain.IndexStats, error) {
	snap, err := u.Open()
	if err != nil {
		return domain.IndexStats{}, err
	}
	return snap.Stats(), nil
}
