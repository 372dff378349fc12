package repository

import (
	"fmt"

	"gorm.io/gorm"

	"smartdocs/internal/model"
)

type IngestRecordRepository struct {
	db *gorm.DB
}

func NewIngestRecordRepository(db *gorm.DB) *IngestRecordRepository {
	return &IngestRecordRepository{db: db}
}

func (r *IngestRecordRepository) Create(record *model.IngestRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create ingest record failed: %w", err)
	}
	return nil
}

func (r *IngestRecordRepository) ListByUser(userID uint) ([]model.IngestRecord, error) {
	var records []model.IngestRecord
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list ingest records failed: %w", err)
	}
	return records, nil
}
