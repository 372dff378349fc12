package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"smartdocs/internal/vectorstore"
)

const DefaultTopK = 8

var (
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrEmbedding marks a query that could not be embedded. Callers decide
	// whether to surface it or fall back to keyword search.
	ErrEmbedding = errors.New("query embedding failed")
)

// Result is one retrieved chunk ready for prompt assembly.
type Result struct {
	ChunkText      string  `json:"chunk_text"`
	SourceFile     string  `json:"source_file"`
	PageNumber     int     `json:"page_number"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Embedder turns the query into a vector; embedding.Service satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Storage is the slice of the vector store the engine needs.
type Storage interface {
	Query(ctx context.Context, ns vectorstore.Namespace, vector []float32, k int) ([]vectorstore.Entry, error)
	All(ctx context.Context, ns vectorstore.Namespace) ([]vectorstore.Entry, error)
}

// ResultCache holds recent search results keyed by namespace and query.
// Both methods are best effort; cache.SearchCache satisfies it.
type ResultCache interface {
	Get(ctx context.Context, ns vectorstore.Namespace, query string) ([]Result, bool)
	Set(ctx context.Context, ns vectorstore.Namespace, query string, results []Result)
}

// Engine answers similarity queries against one user's namespace, with a
// keyword scan as the degraded path when embeddings are unavailable.
type Engine struct {
	embedder Embedder
	store    Storage
	cache    ResultCache
}

// NewEngine builds an engine; cache may be nil to disable result caching.
func NewEngine(embedder Embedder, store Storage, cache ResultCache) *Engine {
	return &Engine{embedder: embedder, store: store, cache: cache}
}

// Search embeds the query and returns up to k results ordered by cosine
// similarity, best first. Scores are recomputed against the stored
// vectors and rounded to four decimals, so a storage engine with a
// different distance metric cannot skew the ordering.
func (e *Engine) Search(ctx context.Context, ns vectorstore.Namespace, query string, k int) ([]Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}

	if e.cache != nil {
		if results, ok := e.cache.Get(ctx, ns, trimmed); ok {
			return results, nil
		}
	}

	vector, err := e.embedder.Embed(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	entries, err := e.store.Query(ctx, ns, vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(entries))
	for i, entry := range entries {
		results[i] = Result{
			ChunkText:      entry.Document,
			SourceFile:     entry.Metadata.SourceFile,
			PageNumber:     entry.Metadata.PageNumber,
			RelevanceScore: roundScore(vectorstore.Cosine(vector, entry.Vector)),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if e.cache != nil {
		e.cache.Set(ctx, ns, trimmed, results)
	}
	return results, nil
}

// KeywordSearch is the degraded path: it scans every stored chunk and
// scores it by how often the query's tokens occur in the text. Only
// chunks with at least one hit are returned. Callers choose this path
// explicitly; Search never falls back on its own.
func (e *Engine) KeywordSearch(ctx context.Context, ns vectorstore.Namespace, query string, k int) ([]Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}

	entries, err := e.store.All(ctx, ns)
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(strings.ToLower(trimmed))
	if len(tokens) == 0 {
		return nil, ErrEmptyQuery
	}

	var results []Result
	for _, entry := range entries {
		text := strings.ToLower(entry.Document)
		hits := 0
		for _, token := range tokens {
			hits += strings.Count(text, token)
		}
		if hits == 0 {
			continue
		}
		results = append(results, Result{
			ChunkText:      entry.Document,
			SourceFile:     entry.Metadata.SourceFile,
			PageNumber:     entry.Metadata.PageNumber,
			RelevanceScore: float64(hits),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if len(results) > k {
		results = results[:k]
	}
	log.Printf("search: keyword fallback matched %d chunks in %s", len(results), ns)
	return results, nil
}

func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
