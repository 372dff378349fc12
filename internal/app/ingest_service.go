package app

import (
	"context"
	"log"

	"smartdocs/internal/ingest"
	"smartdocs/internal/model"
	"smartdocs/internal/repository"
	"smartdocs/internal/vectorstore"
)

// AuditPublisher pushes ingest outcomes to the audit queue;
// rabbitmq.IngestEventPublisher satisfies it.
type AuditPublisher interface {
	Publish(ctx context.Context, record model.IngestRecord) error
}

// IngestService runs document uploads through the batch pipeline and
// records one audit row per document.
type IngestService struct {
	batch      *ingest.Batch
	store      *vectorstore.Store
	recordRepo *repository.IngestRecordRepository
	publisher  AuditPublisher
}

// NewIngestService builds the service; publisher may be nil, in which
// case audit rows are written synchronously instead of queued.
func NewIngestService(batch *ingest.Batch, store *vectorstore.Store, recordRepo *repository.IngestRecordRepository, publisher AuditPublisher) *IngestService {
	return &IngestService{
		batch:      batch,
		store:      store,
		recordRepo: recordRepo,
		publisher:  publisher,
	}
}

// ProcessUploads ingests every path into the user's namespace and
// returns one outcome per document, in completion order.
func (s *IngestService) ProcessUploads(ctx context.Context, userID uint, paths []string, progress func(float64)) ([]ingest.Outcome, error) {
	if userID == 0 || len(paths) == 0 {
		return nil, ErrInvalidInput
	}

	ns := vectorstore.UserNamespace(userID)
	outcomes := s.batch.ProcessMany(ctx, ns, ns.String(), paths, progress)

	for _, outcome := range outcomes {
		s.audit(ctx, userID, outcome)
	}
	return outcomes, nil
}

func (s *IngestService) CollectionStats(ctx context.Context, userID uint) (vectorstore.Stats, error) {
	if userID == 0 {
		return vectorstore.Stats{}, ErrInvalidInput
	}
	return s.store.Stats(ctx, vectorstore.UserNamespace(userID))
}

// DeleteCollection drops every stored vector for the user.
func (s *IngestService) DeleteCollection(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrInvalidInput
	}
	return s.store.DeleteCollection(ctx, vectorstore.UserNamespace(userID))
}

func (s *IngestService) ListRecords(userID uint) ([]model.IngestRecord, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.recordRepo.ListByUser(userID)
}

// audit is best effort on the queue path: when publishing fails the row
// is written directly so no outcome goes unrecorded.
func (s *IngestService) audit(ctx context.Context, userID uint, outcome ingest.Outcome) {
	record := model.IngestRecord{
		UserID:     userID,
		FileName:   outcome.FileName,
		Status:     string(outcome.Status),
		ChunkCount: outcome.ChunkCount,
		Error:      outcome.Error,
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, record)
		if err == nil {
			return
		}
		log.Printf("ingest: publish audit event for %s failed: %v", record.FileName, err)
	}
	if err := s.recordRepo.Create(&record); err != nil {
		log.Printf("ingest: write audit record for %s failed: %v", record.FileName, err)
	}
}
