package model

import (
	"encoding/json"
	"time"
)

// VectorCollection is one logical namespace of the vector store.
// One row per user; entries reference it by name.
type VectorCollection struct {
	Name        string    `gorm:"primaryKey;size:128" json:"name"`
	Description string    `gorm:"size:256" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// VectorEntry is one persisted embedding row inside a collection.
// Embedding is stored as a JSON array of float32 for portability.
type VectorEntry struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Collection string    `gorm:"size:128;not null;index" json:"collection"`
	Embedding  string    `gorm:"type:text;not null" json:"-"`
	Document   string    `gorm:"type:text;not null" json:"document"`
	SourceFile string    `gorm:"size:256" json:"source_file"`
	PageNumber int       `json:"page_number"`
	ChunkID    string    `gorm:"size:64" json:"chunk_id"`
	UserTag    string    `gorm:"size:128" json:"user_tag"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (e *VectorEntry) EmbeddingVector() []float32 {
	if e.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(e.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (e *VectorEntry) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		e.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	e.Embedding = string(b)
}
