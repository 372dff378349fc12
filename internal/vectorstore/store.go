package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"smartdocs/internal/model"
)

var (
	// ErrStorage wraps every underlying storage failure. The core never
	// retries it; a down storage engine rarely heals within a request.
	ErrStorage = errors.New("vector storage unavailable")

	ErrNotFound         = errors.New("vector entry not found")
	ErrInvalidNamespace = errors.New("invalid namespace")
)

// Metadata travels with every stored entry.
type Metadata struct {
	SourceFile string `json:"source_file"`
	PageNumber int    `json:"page_number"`
	ChunkID    string `json:"chunk_id"`
	User       string `json:"user"`
}

// Entry is one stored (id, vector, document, metadata) row.
type Entry struct {
	ID       string
	Vector   []float32
	Document string
	Metadata Metadata
}

// Update carries the fields of a partial update; nil/empty fields are
// left untouched.
type Update struct {
	Vector   []float32
	Document *string
	Metadata *Metadata
}

type Stats struct {
	Collection  string `json:"collection_name"`
	Exists      bool   `json:"exists"`
	Count       int64  `json:"total_documents"`
	Description string `json:"description,omitempty"`
}

// Store keeps namespace-scoped embedding collections in a relational
// table and answers nearest-neighbor queries by scoring in process.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EnsureCollection creates the namespace's collection if it does not
// exist yet. Calling it on an existing collection is a no-op, never an
// error.
func (s *Store) EnsureCollection(ctx context.Context, ns Namespace) error {
	if !ns.Valid() {
		return ErrInvalidNamespace
	}
	col := model.VectorCollection{
		Name:        ns.String(),
		Description: "smartdocs embeddings collection",
	}
	err := s.db.WithContext(ctx).
		Where(model.VectorCollection{Name: ns.String()}).
		FirstOrCreate(&col).Error
	if err != nil {
		return fmt.Errorf("%w: ensure collection %s: %v", ErrStorage, ns, err)
	}
	return nil
}

// Insert stores the entries in one batch create. Callers must treat a
// failed insert as failed wholesale: the underlying engine may have
// applied some rows, but no partial success is ever reported.
func (s *Store) Insert(ctx context.Context, ns Namespace, entries []Entry) error {
	if !ns.Valid() {
		return ErrInvalidNamespace
	}
	if len(entries) == 0 {
		return nil
	}
	if err := s.EnsureCollection(ctx, ns); err != nil {
		return err
	}

	rows := make([]model.VectorEntry, len(entries))
	for i, e := range entries {
		rows[i] = model.VectorEntry{
			ID:         e.ID,
			Collection: ns.String(),
			Document:   e.Document,
			SourceFile: e.Metadata.SourceFile,
			PageNumber: e.Metadata.PageNumber,
			ChunkID:    e.Metadata.ChunkID,
			UserTag:    e.Metadata.User,
			CreatedAt:  time.Now().UTC(),
		}
		rows[i].SetEmbedding(e.Vector)
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("%w: insert %d entries into %s: %v", ErrStorage, len(rows), ns, err)
	}
	return nil
}

// Update changes only the supplied fields of one entry in place.
func (s *Store) Update(ctx context.Context, ns Namespace, id string, upd Update) error {
	if !ns.Valid() {
		return ErrInvalidNamespace
	}

	changes := make(map[string]interface{})
	if len(upd.Vector) > 0 {
		var row model.VectorEntry
		row.SetEmbedding(upd.Vector)
		changes["embedding"] = row.Embedding
	}
	if upd.Document != nil {
		changes["document"] = *upd.Document
	}
	if upd.Metadata != nil {
		changes["source_file"] = upd.Metadata.SourceFile
		changes["page_number"] = upd.Metadata.PageNumber
		changes["chunk_id"] = upd.Metadata.ChunkID
		changes["user_tag"] = upd.Metadata.User
	}
	if len(changes) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).
		Model(&model.VectorEntry{}).
		Where("collection = ? AND id = ?", ns.String(), id).
		Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("%w: update entry %s in %s: %v", ErrStorage, id, ns, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s in %s", ErrNotFound, id, ns)
	}
	return nil
}

// Stats reports whether the collection exists and how many entries it holds.
func (s *Store) Stats(ctx context.Context, ns Namespace) (Stats, error) {
	if !ns.Valid() {
		return Stats{}, ErrInvalidNamespace
	}

	var col model.VectorCollection
	err := s.db.WithContext(ctx).Where("name = ?", ns.String()).First(&col).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Stats{Collection: ns.String(), Exists: false}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("%w: stats for %s: %v", ErrStorage, ns, err)
	}

	var count int64
	err = s.db.WithContext(ctx).
		Model(&model.VectorEntry{}).
		Where("collection = ?", ns.String()).
		Count(&count).Error
	if err != nil {
		return Stats{}, fmt.Errorf("%w: count entries in %s: %v", ErrStorage, ns, err)
	}
	return Stats{
		Collection:  ns.String(),
		Exists:      true,
		Count:       count,
		Description: col.Description,
	}, nil
}

// DeleteCollection removes every entry in the namespace at once, then
// the collection itself. Deleting a missing collection is a no-op.
func (s *Store) DeleteCollection(ctx context.Context, ns Namespace) error {
	if !ns.Valid() {
		return ErrInvalidNamespace
	}
	err := s.db.WithContext(ctx).
		Where("collection = ?", ns.String()).
		Delete(&model.VectorEntry{}).Error
	if err != nil {
		return fmt.Errorf("%w: delete entries in %s: %v", ErrStorage, ns, err)
	}
	err = s.db.WithContext(ctx).
		Where("name = ?", ns.String()).
		Delete(&model.VectorCollection{}).Error
	if err != nil {
		return fmt.Errorf("%w: delete collection %s: %v", ErrStorage, ns, err)
	}
	return nil
}

// Query returns the k nearest entries by cosine similarity, best first,
// with their stored vectors so callers can rerank defensively. An empty
// or missing collection yields an empty result, not an error.
func (s *Store) Query(ctx context.Context, ns Namespace, vector []float32, k int) ([]Entry, error) {
	if !ns.Valid() {
		return nil, ErrInvalidNamespace
	}
	if k <= 0 {
		return nil, nil
	}

	entries, err := s.All(ctx, ns)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return Cosine(vector, entries[i].Vector) > Cosine(vector, entries[j].Vector)
	})
	if k > len(entries) {
		k = len(entries)
	}
	return entries[:k], nil
}

// All returns every entry in the namespace; the keyword-search fallback
// scans these when vector search is unavailable.
func (s *Store) All(ctx context.Context, ns Namespace) ([]Entry, error) {
	if !ns.Valid() {
		return nil, ErrInvalidNamespace
	}

	var rows []model.VectorEntry
	err := s.db.WithContext(ctx).
		Where("collection = ?", ns.String()).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load entries in %s: %v", ErrStorage, ns, err)
	}

	entries := make([]Entry, len(rows))
	for i := range rows {
		entries[i] = Entry{
			ID:       rows[i].ID,
			Vector:   rows[i].EmbeddingVector(),
			Document: rows[i].Document,
			Metadata: Metadata{
				SourceFile: rows[i].SourceFile,
				PageNumber: rows[i].PageNumber,
				ChunkID:    rows[i].ChunkID,
				User:       rows[i].UserTag,
			},
		}
	}
	return entries, nil
}

// Cosine is the normalized dot product of two vectors. A zero vector has
// no direction; its similarity to anything is defined as 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
