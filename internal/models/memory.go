package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Memory is a stored meeting transcript. Rows are append-only.
type Memory struct {
	ID        string          `gorm:"primaryKey;type:uuid"`
	Username  string          `gorm:"not null;index"`
	MeetingID string          `gorm:"column:meeting_id;not null"`
	Text      string          `gorm:"type:text;not null"`
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time       `gorm:"not null;index"`
}
