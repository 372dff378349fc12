package model

import "time"

type QASession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// QATurn is one question/answer exchange inside a QA session.
// Citations holds the JSON-encoded citation list extracted from the answer.
type QATurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"session_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Citations string    `gorm:"type:text" json:"citations"`
	CreatedAt time.Time `json:"created_at"`
}
