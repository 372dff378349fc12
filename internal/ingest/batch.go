package ingest

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"smartdocs/internal/vectorstore"
)

const defaultWorkers = 3

// Batch fans ingestion of multiple documents out over a bounded worker
// pool. Each document is independent: one failure is recorded, never
// fatal for its siblings.
type Batch struct {
	ingestor *Ingestor
	workers  int
}

func NewBatch(ingestor *Ingestor, workers int) *Batch {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Batch{ingestor: ingestor, workers: workers}
}

// ProcessMany ingests every path and returns one outcome per document.
// Results arrive in completion order, not submission order. The optional
// progress callback receives the fraction complete after each document.
func (b *Batch) ProcessMany(ctx context.Context, ns vectorstore.Namespace, userTag string, paths []string, progress func(float64)) []Outcome {
	if len(paths) == 0 {
		return nil
	}

	jobs := make(chan string)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				outcome, err := b.ingestor.Ingest(ctx, ns, userTag, path)
				if err != nil {
					log.Printf("batch: processing %s failed: %v", path, err)
					outcome = Outcome{
						FileName: filepath.Base(path),
						Status:   StatusFailed,
						Error:    err.Error(),
					}
				}
				results <- outcome
			}
		}()
	}

	go func() {
		for _, path := range paths {
			jobs <- path
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, 0, len(paths))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
		if progress != nil {
			progress(float64(len(outcomes)) / float64(len(paths)))
		}
	}
	return outcomes
}
