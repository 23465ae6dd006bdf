package database

import (
	"errors"
	"log/slog"

	"github.com/jimdaga/aether/internal/auth"
	"github.com/jimdaga/aether/internal/models"
	"gorm.io/gorm"
)

// Development account created by SeedDevData.
const (
	DevUsername = "dev"
	DevPassword = "dev-password"
)

// SeedDevData creates a development account.
// Idempotent: skips if the account already exists.
func SeedDevData(db *gorm.DB) error {
	var existing models.User
	err := db.Where("username = ?", DevUsername).First(&existing).Error
	if err == nil {
		slog.Info("Seed data already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := auth.HashPassword(DevPassword)
	if err != nil {
		return err
	}

	user := models.User{
		Username:     DevUsername,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	slog.Info("Seeded dev data: 1 user", "username", DevUsername)
	return nil
}
