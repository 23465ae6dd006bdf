package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a local account authenticated with a username and password.
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex:idx_users_username_not_deleted,where:deleted_at IS NULL;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	LastLoginAt  *time.Time

	// Associations
	AuthIdentities []AuthIdentity `gorm:"constraint:OnDelete:CASCADE;"`
}
