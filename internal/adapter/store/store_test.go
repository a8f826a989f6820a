package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"ragchat/internal/adapter/embedding"
	"ragchat/internal/domain"
)

// fakeEmbedder returns fixed vectors keyed by text.
type fakeEmbedder struct {
	model   string
	dim     int
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			v = make([]float32, f.dim)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return f.dim }
func (f *fakeEmbedder) ModelName() string { return f.model }

func newFake() *fakeEmbedder {
	return &fakeEmbedder{
		model: "fake",
		dim:   3,
		vectors: map[string][]float32{
			"alpha":   {1, 0, 0},
			"beta":    {0, 1, 0},
			"gamma":   {0, 0, 1},
			"alpha-2": {1, 0, 0},
			"mixed":   {1, 1, 0},
		},
	}
}

func chunk(id, text string) domain.Chunk {
	return domain.Chunk{ID: id, Source: "doc.pdf", Page: 1, Text: text}
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		chunk("c3", "gamma"),
		chunk("c1", "alpha"),
		chunk("c2", "beta"),
	}
}

func buildTestIndex(t *testing.T, opts BuildOptions) (string, *Index) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectorstore", "index.db")
	idx, err := Build(context.Background(), path, testChunks(), newFake(), opts)
	require.NoError(t, err)
	return path, idx
}

func TestBuild_EmptyInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	_, err := Build(context.Background(), path, nil, newFake(), BuildOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is written for empty input")
}

func TestBuild_DuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	chunks := []domain.Chunk{chunk("c1", "alpha"), chunk("c1", "beta")}
	_, err := Build(context.Background(), path, chunks, newFake(), BuildOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuild_BatchesAndProgress(t *testing.T) {
	emb := newFake()
	var progress []int
	path := filepath.Join(t.TempDir(), "index.db")
	_, err := Build(context.Background(), path, testChunks(), emb, BuildOptions{
		BatchSize: 2,
		Progress:  func(done, total int) { progress = append(progress, done) },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)
	assert.Equal(t, []int{2, 3}, progress)
}

func TestBuild_NoTempFilesLeft(t *testing.T) {
	path, _ := buildTestIndex(t, BuildOptions{})
	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "index.db", files[0].Name())
	assert.Equal(t, "index.db.sum", files[1].Name())
}

func TestLoad_RoundTrip(t *testing.T) {
	path, built := buildTestIndex(t, BuildOptions{ConfigHash: "abc123"})

	idx, err := Load(path, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, built.Len(), idx.Len())
	stats := idx.Stats()
	assert.Equal(t, CurrentSchemaVersion, stats.SchemaVersion)
	assert.Equal(t, "fake", stats.Model)
	assert.Equal(t, 3, stats.Dimension)
	assert.Equal(t, "abc123", stats.ConfigHash)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, path, stats.Path)
	assert.WithinDuration(t, time.Now(), stats.BuiltAt, time.Minute)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "index.db"), LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoad_NotABoltFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a database"), 0644))

	_, err := Load(path, LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)

	// A matching digest does not make garbage loadable.
	require.NoError(t, writeDigest(path, DigestPath(path), nil))
	_, err = Load(path, LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestLoad_MissingDigest(t *testing.T) {
	path, _ := buildTestIndex(t, BuildOptions{})
	require.NoError(t, os.Remove(DigestPath(path)))

	_, err := Load(path, LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Contains(t, err.Error(), "digest file missing")
}

func TestLoad_FlippedBytes(t *testing.T) {
	emb, err := embedding.NewHashEmbedder(16)
	require.NoError(t, err)

	chunks := make([]domain.Chunk, 300)
	for i := range chunks {
		chunks[i] = chunk(fmt.Sprintf("id-%03d", i), fmt.Sprintf("dosage note %d for patient cohort %d", i, i%7))
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	_, err = Build(context.Background(), path, chunks, emb, BuildOptions{})
	require.NoError(t, err)

	original, err := os.ReadFile(path)
	require.NoError(t, err)
	sum, err := os.ReadFile(DigestPath(path))
	require.NoError(t, err)

	damaged := filepath.Join(dir, "damaged.db")
	require.NoError(t, os.WriteFile(DigestPath(damaged), sum, 0600))

	for off := 0; off < len(original); off += 97 {
		data := append([]byte(nil), original...)
		data[off] ^= 0xFF
		require.NoError(t, os.WriteFile(damaged, data, 0600))

		_, err := Load(damaged, LoadOptions{})
		require.ErrorIs(t, err, domain.ErrIndexCorrupt, "offset %d", off)
	}
}

// tamper edits the index through bbolt and reseals the file digest, so only
// the entry checksum and header checks stand between the edit and Load.
func tamper(t *testing.T, path string, fn func(tx *bbolt.Tx) error) {
	t.Helper()
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, db.Update(fn))
	require.NoError(t, db.Close())
	require.NoError(t, writeDigest(path, DigestPath(path), nil))
}

func TestLoad_EditWithoutResealing(t *testing.T) {
	path, _ := buildTestIndex(t, BuildOptions{})
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte("c2"))
	}))
	require.NoError(t, db.Close())

	_, err = Load(path, LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Contains(t, err.Error(), "file digest mismatch")
}

func TestLoad_DetectsTampering(t *testing.T) {
	tests := []struct {
		name string
		fn   func(tx *bbolt.Tx) error
	}{
		{"modified entry", func(tx *bbolt.Tx) error {
			return tx.Bucket(bucketEntries).Put([]byte("c1"), []byte(`{"c":{"id":"c1","text":"injected"},"v":[1,0,0]}`))
		}},
		{"added entry", func(tx *bbolt.Tx) error {
			return tx.Bucket(bucketEntries).Put([]byte("c9"), []byte(`{"c":{"id":"c9","text":"extra"},"v":[0,1,0]}`))
		}},
		{"removed entry", func(tx *bbolt.Tx) error {
			return tx.Bucket(bucketEntries).Delete([]byte("c2"))
		}},
		{"modified header", func(tx *bbolt.Tx) error {
			h, err := readHeader(tx)
			if err != nil {
				return err
			}
			h.Model = "other"
			return tx.Bucket(bucketMeta).Put(keyHeader, []byte(fmt.Sprintf(
				`{"schema_version":%d,"model":%q,"dimension":%d,"chunks":%d}`, h.SchemaVersion, h.Model, h.Dimension, h.Chunks)))
		}},
		{"missing checksum", func(tx *bbolt.Tx) error {
			return tx.Bucket(bucketMeta).Delete(keyChecksum)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, _ := buildTestIndex(t, BuildOptions{})
			tamper(t, path, tt.fn)

			_, err := Load(path, LoadOptions{})
			assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
		})
	}
}

func TestLoad_SchemaVersion(t *testing.T) {
	path, _ := buildTestIndex(t, BuildOptions{})
	tamper(t, path, func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyHeader, []byte(`{"schema_version":99,"model":"fake","dimension":3,"chunks":3}`))
	})

	_, err := Load(path, LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Contains(t, err.Error(), "newer version")
}

func TestLoad_Secret(t *testing.T) {
	secret := []byte("s3cret")
	path, _ := buildTestIndex(t, BuildOptions{Secret: secret})

	_, err := Load(path, LoadOptions{Secret: secret})
	assert.NoError(t, err)

	_, err = Load(path, LoadOptions{Secret: []byte("wrong")})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)

	_, err = Load(path, LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestQuery_TopK(t *testing.T) {
	_, idx := buildTestIndex(t, BuildOptions{})
	emb := newFake()

	got, err := idx.Query(context.Background(), emb, "alpha", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].Chunk.ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)

	got, err = idx.Query(context.Background(), emb, "mixed", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// alpha and beta tie; the tie is broken by chunk ID.
	assert.Equal(t, "c1", got[0].Chunk.ID)
	assert.Equal(t, "c2", got[1].Chunk.ID)
	assert.Equal(t, "c3", got[2].Chunk.ID)
	assert.GreaterOrEqual(t, got[1].Score, got[2].Score)
}

func TestQuery_KLargerThanIndex(t *testing.T) {
	_, idx := buildTestIndex(t, BuildOptions{})

	got, err := idx.Query(context.Background(), newFake(), "beta", 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "c2", got[0].Chunk.ID)
}

func TestQuery_InvalidK(t *testing.T) {
	_, idx := buildTestIndex(t, BuildOptions{})

	_, err := idx.Query(context.Background(), newFake(), "beta", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuery_EmbedderMismatch(t *testing.T) {
	_, idx := buildTestIndex(t, BuildOptions{})
	other := newFake()
	other.model = "other"

	_, err := idx.Query(context.Background(), other, "alpha", 1)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestQuery_SelfRetrieval(t *testing.T) {
	emb, err := embedding.NewHashEmbedder(256)
	require.NoError(t, err)

	texts := []string{
		"Hypertension is persistently elevated arterial blood pressure.",
		"Insulin is a hormone that regulates blood glucose.",
		"Asthma causes inflammation and narrowing of the airways.",
		"Migraine is a recurrent headache disorder with nausea.",
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = chunk(fmt.Sprintf("id-%d", i), text)
	}

	path := filepath.Join(t.TempDir(), "index.db")
	_, err = Build(context.Background(), path, chunks, emb, BuildOptions{})
	require.NoError(t, err)

	idx, err := Load(path, LoadOptions{})
	require.NoError(t, err)

	for _, c := range chunks {
		got, err := idx.Query(context.Background(), emb, c.Text, 1)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got[0].Chunk.ID)
		assert.Equal(t, c.Text, got[0].Chunk.Text)
	}
}

func TestRebuildReason(t *testing.T) {
	h := Header{Model: "hash-384", Dimension: 384, ConfigHash: "aaa"}

	assert.Empty(t, RebuildReason(h, "aaa", "hash-384", 384))
	assert.Contains(t, RebuildReason(h, "aaa", "text-embedding-3-small", 1536), "model changed")
	assert.Contains(t, RebuildReason(h, "aaa", "hash-384", 128), "dimension changed")
	assert.Equal(t, "index configuration changed", RebuildReason(h, "bbb", "hash-384", 384))
}
