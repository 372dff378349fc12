package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdocs/internal/pkg/pdfextract"
	"smartdocs/internal/textproc"
	"smartdocs/internal/vectorstore"
)

func TestProcessManyOneFailureKeepsSiblings(t *testing.T) {
	store := newTestStore(t)
	extractor := &fakeExtractor{docs: map[string]*pdfextract.Document{
		"/tmp/a.pdf": pageDoc("a.pdf", map[int]string{1: "Alpha content sentence one. Alpha two."}),
		"/tmp/b.pdf": pageDoc("b.pdf", map[int]string{1: "Beta content sentence one. Beta two."}),
		"/tmp/c.pdf": pageDoc("c.pdf", map[int]string{1: "Gamma content sentence one. Gamma two."}),
	}}
	ing := NewIngestor(extractor, textproc.NewChunker(10), &fakeEmbedder{}, store, textproc.StrategySentences)
	batch := NewBatch(ing, 2)

	paths := []string{"/tmp/a.pdf", "/tmp/broken.pdf", "/tmp/b.pdf", "/tmp/c.pdf"}
	outcomes := batch.ProcessMany(context.Background(), vectorstore.UserNamespace(1), "user_1", paths, nil)
	require.Len(t, outcomes, len(paths))

	failed := 0
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			failed++
			assert.Equal(t, "broken.pdf", o.FileName)
			assert.NotEmpty(t, o.Error)
		} else {
			assert.Equal(t, StatusSuccess, o.Status)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestProcessManyReportsProgress(t *testing.T) {
	store := newTestStore(t)
	extractor := &fakeExtractor{docs: map[string]*pdfextract.Document{
		"/tmp/a.pdf": pageDoc("a.pdf", map[int]string{1: "First document body."}),
		"/tmp/b.pdf": pageDoc("b.pdf", map[int]string{1: "Second document body."}),
	}}
	ing := NewIngestor(extractor, textproc.NewChunker(10), &fakeEmbedder{}, store, textproc.StrategySentences)
	batch := NewBatch(ing, 1)

	var fractions []float64
	batch.ProcessMany(context.Background(), vectorstore.UserNamespace(1), "user_1", []string{"/tmp/a.pdf", "/tmp/b.pdf"},
		func(f float64) { fractions = append(fractions, f) })

	require.Len(t, fractions, 2)
	assert.InDelta(t, 0.5, fractions[0], 1e-9)
	assert.InDelta(t, 1.0, fractions[1], 1e-9)
}

func TestProcessManyEmptyInput(t *testing.T) {
	store := newTestStore(t)
	ing := NewIngestor(&fakeExtractor{}, textproc.NewChunker(10), &fakeEmbedder{}, store, textproc.StrategySentences)
	batch := NewBatch(ing, 0)

	assert.Nil(t, batch.ProcessMany(context.Background(), vectorstore.UserNamespace(1), "user_1", nil, nil))
}
