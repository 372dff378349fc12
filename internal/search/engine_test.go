package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdocs/internal/vectorstore"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeStorage struct {
	entries []vectorstore.Entry
	err     error
}

func (f *fakeStorage) Query(ctx context.Context, ns vectorstore.Namespace, vector []float32, k int) ([]vectorstore.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.entries) {
		k = len(f.entries)
	}
	return f.entries[:k], nil
}

func (f *fakeStorage) All(ctx context.Context, ns vectorstore.Namespace) ([]vectorstore.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

type fakeCache struct {
	store map[string][]Result
	sets  int
}

func (f *fakeCache) key(ns vectorstore.Namespace, query string) string {
	return ns.String() + "|" + query
}

func (f *fakeCache) Get(ctx context.Context, ns vectorstore.Namespace, query string) ([]Result, bool) {
	results, ok := f.store[f.key(ns, query)]
	return results, ok
}

func (f *fakeCache) Set(ctx context.Context, ns vectorstore.Namespace, query string, results []Result) {
	if f.store == nil {
		f.store = make(map[string][]Result)
	}
	f.store[f.key(ns, query)] = results
	f.sets++
}

func entry(id string, vec []float32, doc, file string, page int) vectorstore.Entry {
	return vectorstore.Entry{
		ID:       id,
		Vector:   vec,
		Document: doc,
		Metadata: vectorstore.Metadata{SourceFile: file, PageNumber: page, ChunkID: id, User: "user_1"},
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	e := NewEngine(&fakeEmbedder{}, &fakeStorage{}, nil)
	_, err := e.Search(context.Background(), vectorstore.UserNamespace(1), "   ", 8)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchOrdersByRecomputedScore(t *testing.T) {
	store := &fakeStorage{entries: []vectorstore.Entry{
		entry("far", []float32{0, 1, 0}, "far doc", "far.pdf", 2),
		entry("near", []float32{1, 0, 0}, "near doc", "near.pdf", 1),
		entry("mid", []float32{0.7, 0.7, 0}, "mid doc", "mid.pdf", 3),
	}}
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0, 0}}, store, nil)

	results, err := e.Search(context.Background(), vectorstore.UserNamespace(1), "query", 8)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near doc", results[0].ChunkText)
	assert.Equal(t, "mid doc", results[1].ChunkText)
	assert.Equal(t, "far doc", results[2].ChunkText)
	assert.Equal(t, 1.0, results[0].RelevanceScore)
	assert.Equal(t, "near.pdf", results[0].SourceFile)
	assert.Equal(t, 1, results[0].PageNumber)
}

func TestSearchRoundsScoresToFourDecimals(t *testing.T) {
	store := &fakeStorage{entries: []vectorstore.Entry{
		entry("a", []float32{1, 1, 0}, "doc", "a.pdf", 1),
	}}
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0, 0}}, store, nil)

	results, err := e.Search(context.Background(), vectorstore.UserNamespace(1), "query", 8)
	require.NoError(t, err)
	require.Len(t, results, 1)
	// cos(45 degrees) = 0.70710678... rounds to 0.7071.
	assert.Equal(t, 0.7071, results[0].RelevanceScore)
}

func TestSearchWrapsEmbedderFailure(t *testing.T) {
	e := NewEngine(&fakeEmbedder{err: errors.New("provider down")}, &fakeStorage{}, nil)
	_, err := e.Search(context.Background(), vectorstore.UserNamespace(1), "query", 8)
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.Contains(t, err.Error(), "provider down")
}

func TestSearchDefaultsK(t *testing.T) {
	entries := make([]vectorstore.Entry, 20)
	for i := range entries {
		entries[i] = entry("id", []float32{1, 0}, "doc", "f.pdf", i)
	}
	e := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, &fakeStorage{entries: entries}, nil)

	results, err := e.Search(context.Background(), vectorstore.UserNamespace(1), "query", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestSearchUsesCache(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{1, 0}}
	store := &fakeStorage{entries: []vectorstore.Entry{
		entry("a", []float32{1, 0}, "doc", "a.pdf", 1),
	}}
	cache := &fakeCache{}
	e := NewEngine(embedder, store, cache)
	ns := vectorstore.UserNamespace(1)

	first, err := e.Search(context.Background(), ns, "query", 8)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 1, cache.sets)

	second, err := e.Search(context.Background(), ns, "query", 8)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls, "cache hit skips the embedder")
	assert.Equal(t, first, second)
}

func TestKeywordSearchScoresByTokenHits(t *testing.T) {
	store := &fakeStorage{entries: []vectorstore.Entry{
		entry("a", nil, "revenue grew and revenue margins improved", "a.pdf", 1),
		entry("b", nil, "costs fell sharply", "b.pdf", 2),
		entry("c", nil, "Revenue was flat", "c.pdf", 3),
	}}
	e := NewEngine(&fakeEmbedder{}, store, nil)

	results, err := e.KeywordSearch(context.Background(), vectorstore.UserNamespace(1), "Revenue", 8)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a.pdf", results[0].SourceFile)
	assert.Equal(t, 2.0, results[0].RelevanceScore)
	assert.Equal(t, "c.pdf", results[1].SourceFile)
	assert.Equal(t, 1.0, results[1].RelevanceScore)
}

func TestKeywordSearchCapsAtK(t *testing.T) {
	entries := make([]vectorstore.Entry, 10)
	for i := range entries {
		entries[i] = entry("id", nil, "common term", "f.pdf", i)
	}
	e := NewEngine(&fakeEmbedder{}, &fakeStorage{entries: entries}, nil)

	results, err := e.KeywordSearch(context.Background(), vectorstore.UserNamespace(1), "term", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestKeywordSearchNoMatches(t *testing.T) {
	store := &fakeStorage{entries: []vectorstore.Entry{
		entry("a", nil, "totally unrelated text", "a.pdf", 1),
	}}
	e := NewEngine(&fakeEmbedder{}, store, nil)

	results, err := e.KeywordSearch(context.Background(), vectorstore.UserNamespace(1), "zebra", 8)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestKeywordSearchPropagatesStorageError(t *testing.T) {
	e := NewEngine(&fakeEmbedder{}, &fakeStorage{err: vectorstore.ErrStorage}, nil)
	_, err := e.KeywordSearch(context.Background(), vectorstore.UserNamespace(1), "query", 8)
	assert.ErrorIs(t, err, vectorstore.ErrStorage)
}
