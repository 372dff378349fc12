package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"

	"smartdocs/internal/embedding"
	"smartdocs/internal/pkg/pdfextract"
	"smartdocs/internal/textproc"
	"smartdocs/internal/vectorstore"
)

// Status is the per-document outcome of one ingestion run.
type Status string

const (
	StatusSuccess      Status = "SUCCESS"
	StatusNoChunks     Status = "NO_CHUNKS"
	StatusNoEmbeddings Status = "NO_EMBEDDINGS"
	StatusFailed       Status = "FAILED"
)

// Outcome describes what happened to one document.
type Outcome struct {
	FileName   string `json:"file_name"`
	Status     Status `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
}

// Extractor yields per-page raw text; pdfextract.Extractor satisfies it.
type Extractor interface {
	Extract(path string) (*pdfextract.Document, error)
}

// Embedder turns chunks into vectors; embedding.Service satisfies it.
type Embedder interface {
	EmbedBatch(ctx context.Context, chunks []textproc.Chunk) ([]embedding.EmbeddedChunk, error)
}

// Storage is the slice of the vector store the ingestor needs.
type Storage interface {
	EnsureCollection(ctx context.Context, ns vectorstore.Namespace) error
	Insert(ctx context.Context, ns vectorstore.Namespace, entries []vectorstore.Entry) error
}

// Ingestor runs the extract → clean → chunk → embed → store pipeline for
// one document under one user's namespace. Steps are strictly
// sequential; any error fails this document only.
type Ingestor struct {
	extractor Extractor
	chunker   *textproc.Chunker
	embedder  Embedder
	store     Storage
	strategy  textproc.Strategy
}

func NewIngestor(extractor Extractor, chunker *textproc.Chunker, embedder Embedder, store Storage, strategy textproc.Strategy) *Ingestor {
	if strategy == "" {
		strategy = textproc.StrategySentences
	}
	return &Ingestor{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		strategy:  strategy,
	}
}

// Ingest processes one document. A document with no extractable text is
// not a failure: it short-circuits with NO_CHUNKS (or NO_EMBEDDINGS)
// and a nil error. Everything else propagates to the caller.
func (ing *Ingestor) Ingest(ctx context.Context, ns vectorstore.Namespace, userTag, path string) (Outcome, error) {
	doc, err := ing.extractor.Extract(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("extract document failed: %w", err)
	}
	log.Printf("ingest: %s pages=%d namespace=%s", doc.FileName, doc.TotalPages, ns)

	// Page order is fixed so chunk indices are deterministic per document.
	pages := make([]int, 0, len(doc.TextByPage))
	for page := range doc.TextByPage {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	var chunks []textproc.Chunk
	for _, page := range pages {
		cleaned := textproc.Clean(doc.TextByPage[page])
		if cleaned == "" {
			continue
		}
		chunks = append(chunks, ing.chunker.CreateChunks(cleaned, doc.FileName, page, ing.strategy)...)
	}
	if len(chunks) == 0 {
		log.Printf("ingest: no chunks generated for %s (namespace %s)", doc.FileName, ns)
		return Outcome{FileName: doc.FileName, Status: StatusNoChunks}, nil
	}

	embedded, err := ing.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return Outcome{}, fmt.Errorf("embed %s failed: %w", doc.FileName, err)
	}
	if len(embedded) == 0 {
		log.Printf("ingest: no embeddings generated for %s (namespace %s)", doc.FileName, ns)
		return Outcome{FileName: doc.FileName, Status: StatusNoEmbeddings}, nil
	}
	if len(embedded) != len(chunks) {
		return Outcome{}, fmt.Errorf("embedding count mismatch for %s: %d chunks, %d vectors",
			doc.FileName, len(chunks), len(embedded))
	}

	entries := make([]vectorstore.Entry, len(embedded))
	for i, ec := range embedded {
		entries[i] = vectorstore.Entry{
			ID:       ec.Chunk.ID,
			Vector:   ec.Vector,
			Document: ec.Chunk.Text,
			Metadata: vectorstore.Metadata{
				SourceFile: doc.FileName,
				PageNumber: ec.Chunk.PageNumber,
				ChunkID:    ec.Chunk.ID,
				User:       userTag,
			},
		}
	}

	if err := ing.store.EnsureCollection(ctx, ns); err != nil {
		return Outcome{}, err
	}
	if err := ing.store.Insert(ctx, ns, entries); err != nil {
		return Outcome{}, err
	}

	log.Printf("ingest: stored %d vectors for %s in %s", len(entries), doc.FileName, ns)
	return Outcome{FileName: doc.FileName, Status: StatusSuccess, ChunkCount: len(entries)}, nil
}
