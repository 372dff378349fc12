package model

import "time"

// IngestRecord is the audit row for one processed document.
// Status mirrors the ingestion outcome (SUCCESS, NO_CHUNKS, NO_EMBEDDINGS, FAILED).
type IngestRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	FileName   string    `gorm:"size:256;not null" json:"file_name"`
	Status     string    `gorm:"size:32;not null" json:"status"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `gorm:"size:512" json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
