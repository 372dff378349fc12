package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"smartdocs/internal/model"
)

type QASessionRepository struct {
	db *gorm.DB
}

func NewQASessionRepository(db *gorm.DB) *QASessionRepository {
	return &QASessionRepository{db: db}
}

func (r *QASessionRepository) Create(session *model.QASession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create qa session failed: %w", err)
	}
	return nil
}

func (r *QASessionRepository) GetByID(id uint) (*model.QASession, error) {
	var session model.QASession
	if err := r.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query qa session by id failed: %w", err)
	}
	return &session, nil
}

func (r *QASessionRepository) ListByUser(userID uint) ([]model.QASession, error) {
	var sessions []model.QASession
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list qa sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *QASessionRepository) CreateTurn(turn *model.QATurn) error {
	if err := r.db.Create(turn).Error; err != nil {
		return fmt.Errorf("create qa turn failed: %w", err)
	}
	return nil
}

// RecentTurns returns the session's latest turns in chronological order.
func (r *QASessionRepository) RecentTurns(sessionID uint, limit int) ([]model.QATurn, error) {
	var turns []model.QATurn
	err := r.db.Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("query recent qa turns failed: %w", err)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *QASessionRepository) ListTurns(sessionID uint) ([]model.QATurn, error) {
	var turns []model.QATurn
	err := r.db.Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("list qa turns failed: %w", err)
	}
	return turns, nil
}
