package calendar

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jimdaga/aether/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SyncRepository stores one calendar_syncs row per submission.
type SyncRepository struct {
	db *gorm.DB
}

// NewSyncRepository creates a SyncRepository.
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// Start records a pending submission and returns its id.
func (r *SyncRepository) Start(ctx context.Context, username string, event any) (uint, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	row := &models.CalendarSync{
		Username: username,
		Event:    datatypes.JSON(payload),
		Status:   models.CalendarSyncStatusPending,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, fmt.Errorf("failed to record calendar sync: %w", err)
	}
	return row.ID, nil
}

// Finish stores the outcome of a submission.
func (r *SyncRepository) Finish(ctx context.Context, id uint, status, link, errMsg string) error {
	err := r.db.WithContext(ctx).
		Model(&models.CalendarSync{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"link":          link,
			"error_message": errMsg,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update calendar sync: %w", err)
	}
	return nil
}
