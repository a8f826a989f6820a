package pdf

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/adapter/chunker"
	"ragchat/internal/adapter/fs"
)

// repeat fills n characters with sentence, the way the testdata files were
// generated.
func repeat(sentence string, n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
		b.WriteString(" ")
	}
	return b.String()[:n]
}

func TestExtractor_PagesInOrder(t *testing.T) {
	pages, err := NewExtractor().ExtractPages(filepath.Join("testdata", "library", "cardiology.pdf"))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t,
		repeat("Hypertension is persistently elevated arterial blood pressure treated with diuretics.", 1200),
		pages[0])
	assert.Equal(t,
		repeat("Atrial fibrillation is an irregular heart rhythm managed with anticoagulants.", 700),
		pages[1])
}

func TestExtractor_EmptyPageKeepsNumbering(t *testing.T) {
	pages, err := NewExtractor().ExtractPages(filepath.Join("testdata", "blank-page.pdf"))
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, "Asthma causes inflammation and narrowing of the airways.", pages[0])
	assert.Empty(t, strings.TrimSpace(pages[1]))
	assert.Equal(t, "Migraine is a recurrent headache disorder.", pages[2])
}

func TestLoad_RealPDFsChunked(t *testing.T) {
	loader := NewLoader(fs.NewWalker([]string{"*.pdf"}, nil), NewExtractor(), false)
	dir, err := filepath.Abs(filepath.Join("testdata", "library"))
	require.NoError(t, err)

	docs, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, filepath.Join(dir, "cardiology.pdf"), docs[0].Source)
	assert.Equal(t, 1, docs[0].Page)
	assert.Equal(t, 2, docs[1].Page)
	assert.Equal(t, filepath.Join(dir, "endocrinology.pdf"), docs[2].Source)
	assert.Equal(t, 1, docs[2].Page)
	assert.True(t, strings.HasPrefix(docs[2].Text, "Insulin is a hormone"))

	ch, err := chunker.NewCharChunker(500, 50)
	require.NoError(t, err)
	chunks, err := ch.Chunk(docs)
	require.NoError(t, err)

	// 1200, 700 and 300 characters per page.
	expected := ch.ExpectedChunks(1200) + ch.ExpectedChunks(700) + ch.ExpectedChunks(300)
	assert.Equal(t, 6, expected)
	assert.Len(t, chunks, expected)

	for _, c := range chunks {
		assert.NotEmpty(t, c.Text)
		assert.LessOrEqual(t, len([]rune(c.Text)), 500)
	}
}
