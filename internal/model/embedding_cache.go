package model

import (
	"encoding/json"
	"time"
)

// EmbeddingCacheEntry maps the SHA-256 hex of trimmed input text to a
// previously computed embedding. Entries are never evicted.
type EmbeddingCacheEntry struct {
	ContentHash string    `gorm:"primaryKey;size:64" json:"content_hash"`
	Vector      string    `gorm:"type:text;not null" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// VectorSlice returns the parsed vector; empty on parse error.
func (e *EmbeddingCacheEntry) VectorSlice() []float32 {
	if e.Vector == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(e.Vector), &v)
	return v
}

// SetVector stores the vector as JSON.
func (e *EmbeddingCacheEntry) SetVector(vec []float32) {
	if len(vec) == 0 {
		e.Vector = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	e.Vector = string(b)
}
