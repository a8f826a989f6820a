// Package store persists chunk embeddings in a single bbolt file and serves
// similarity search over them.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

const defaultBatchSize = 64

// BuildOptions controls index construction.
type BuildOptions struct {
	BatchSize  int
	Secret     []byte // checksum key; empty uses plain SHA-256
	ConfigHash string

	// Progress, if set, is called after each embedded batch.
	Progress func(done, total int)
}

// LoadOptions controls index loading.
type LoadOptions struct {
	Secret []byte
}

type storedEntry struct {
	Chunk  domain.Chunk `json:"c"`
	Vector []float32    `json:"v"`
}

// Build embeds chunks and writes a new index file at path, replacing any
// existing one. The file is written under a temporary name in the same
// directory and renamed into place, so readers never see a partial index.
func Build(ctx context.Context, path string, chunks []domain.Chunk, embedder port.Embedder, opts BuildOptions) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to index", domain.ErrEmptyInput)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	entries, err := embedChunks(ctx, chunks, embedder, opts)
	if err != nil {
		return nil, err
	}

	sources := make(map[string]struct{})
	for _, e := range entries {
		sources[e.chunk.Source] = struct{}{}
	}

	header := Header{
		SchemaVersion: CurrentSchemaVersion,
		Model:         embedder.ModelName(),
		Dimension:     embedder.Dimension(),
		ConfigHash:    opts.ConfigHash,
		Chunks:        len(entries),
		Sources:       len(sources),
		BuiltAt:       time.Now().UTC().Truncate(time.Second),
	}

	if err := writeIndex(path, header, entries, opts.Secret); err != nil {
		return nil, err
	}

	logger.Info("index written", "path", path, "chunks", header.Chunks, "sources", header.Sources, "model", header.Model)

	return &Index{path: path, header: header, entries: entries}, nil
}

func embedChunks(ctx context.Context, chunks []domain.Chunk, embedder port.Embedder, opts BuildOptions) ([]entry, error) {
	entries := make([]entry, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	dim := embedder.Dimension()

	for i := 0; i < len(chunks); i += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		vecs, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", i, end-1, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors", i, end-1, len(vecs))
		}

		for j, c := range batch {
			if len(vecs[j]) != dim {
				return nil, fmt.Errorf("chunk %s: vector dimension %d, want %d", c.ID, len(vecs[j]), dim)
			}
			if _, dup := seen[c.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate chunk ID %s", domain.ErrInvalidInput, c.ID)
			}
			seen[c.ID] = struct{}{}
			entries = append(entries, entry{chunk: c, vector: vecs[j]})
		}

		if opts.Progress != nil {
			opts.Progress(end, len(chunks))
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].chunk.ID < entries[j].chunk.ID
	})
	return entries, nil
}

func writeIndex(path string, header Header, entries []entry, secret []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp := filepath.Join(dir, ".index-"+uuid.NewString()+".tmp")
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	db, err := bbolt.Open(tmp, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return err
		}

		for _, e := range entries {
			data, err := json.Marshal(storedEntry{Chunk: e.chunk, Vector: e.vector})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(e.chunk.ID), data); err != nil {
				return err
			}
		}

		headerData, err := json.Marshal(header)
		if err != nil {
			return err
		}
		if err := meta.Put(keyHeader, headerData); err != nil {
			return err
		}

		sum, err := computeChecksum(tx, secret)
		if err != nil {
			return err
		}
		return meta.Put(keyChecksum, []byte(sum))
	})
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	sumTmp := tmp + ".sum"
	defer os.Remove(sumTmp)
	if err := writeDigest(tmp, sumTmp, secret); err != nil {
		return fmt.Errorf("digest index: %w", err)
	}

	// The digest lands first; a reader racing the second rename sees a
	// mismatch and retries on its next load.
	if err := os.Rename(sumTmp, DigestPath(path)); err != nil {
		return fmt.Errorf("replace index digest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Load verifies the detached file digest, then opens the index at path and
// checks its schema and entry checksum.
// A missing file yields domain.ErrNotFound; any integrity failure yields
// domain.ErrIndexCorrupt.
func Load(path string, opts LoadOptions) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: index %s", domain.ErrNotFound, path)
		}
		return nil, err
	}

	if err := verifyDigest(path, opts.Secret); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIndexCorrupt, path, err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrIndexCorrupt, path, err)
	}
	defer db.Close()

	idx := &Index{path: path}
	err = db.View(func(tx *bbolt.Tx) error {
		header, err := readHeader(tx)
		if err != nil {
			return err
		}
		if err := checkSchema(header); err != nil {
			return err
		}
		if err := verifyChecksum(tx, opts.Secret); err != nil {
			return err
		}

		entries := make([]entry, 0, header.Chunks)
		err = tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var se storedEntry
			if err := json.Unmarshal(v, &se); err != nil {
				return fmt.Errorf("entry %s: %w", k, err)
			}
			if se.Chunk.ID != string(k) {
				return fmt.Errorf("entry %s: key does not match chunk ID %s", k, se.Chunk.ID)
			}
			if len(se.Vector) != header.Dimension {
				return fmt.Errorf("entry %s: dimension %d, want %d", k, len(se.Vector), header.Dimension)
			}
			entries = append(entries, entry{chunk: se.Chunk, vector: se.Vector})
			return nil
		})
		if err != nil {
			return err
		}
		if len(entries) != header.Chunks {
			return fmt.Errorf("header lists %d chunks, found %d", header.Chunks, len(entries))
		}

		idx.header = header
		idx.entries = entries
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrIndexCorrupt, path, err)
	}

	logger.Debug("index loaded", "path", path, "chunks", len(idx.entries), "model", idx.header.Model)
	return idx, nil
}
