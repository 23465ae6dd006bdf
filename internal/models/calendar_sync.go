package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Calendar sync status constants
const (
	CalendarSyncStatusPending   = "pending"
	CalendarSyncStatusCompleted = "completed"
	CalendarSyncStatusFailed    = "failed"
)

// CalendarSync records one submission of an event to the calendar provider.
type CalendarSync struct {
	gorm.Model
	Username     string         `gorm:"not null;index"`
	Event        datatypes.JSON `gorm:"type:jsonb"`
	Status       string         `gorm:"not null;default:'pending';index"`
	Link         string         `gorm:"type:text"`
	ErrorMessage string         `gorm:"column:error_message;type:text"`
}
