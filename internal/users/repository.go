// Package users persists local accounts and their connected calendar identities.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimdaga/aether/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already registered")
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityUnreadable means the stored tokens no longer decrypt.
	ErrIdentityUnreadable = errors.New("identity tokens unreadable")
)

// Repository is the gorm-backed account store.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a Repository on top of an open connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new account. A duplicate username yields ErrUsernameTaken.
func (r *Repository) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByUsername looks up an account by its unique username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// TouchLogin records a successful login.
func (r *Repository) TouchLogin(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", time.Now().UTC()).Error
}

// GetIdentity returns the user's identity for a provider.
func (r *Repository) GetIdentity(ctx context.Context, userID uint, provider string) (*models.AuthIdentity, error) {
	var identity models.AuthIdentity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		if errors.Is(err, models.ErrTokenUnreadable) {
			return nil, fmt.Errorf("%w: %w", ErrIdentityUnreadable, err)
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return &identity, nil
}

// UpsertIdentity creates or refreshes the user's identity for identity.Provider.
// An empty refresh token keeps the stored one, since providers only send it on first consent.
func (r *Repository) UpsertIdentity(ctx context.Context, identity *models.AuthIdentity) error {
	existing, err := r.GetIdentity(ctx, identity.UserID, identity.Provider)
	if errors.Is(err, ErrIdentityNotFound) {
		return r.db.WithContext(ctx).Create(identity).Error
	}
	if err != nil {
		return err
	}

	existing.ProviderUserID = identity.ProviderUserID
	existing.Email = identity.Email
	existing.AccessToken = identity.AccessToken
	if identity.RefreshToken != "" {
		existing.RefreshToken = identity.RefreshToken
	}
	existing.TokenExpiry = identity.TokenExpiry

	// Save (not Updates) so the encryption hooks run
	return r.db.WithContext(ctx).Save(existing).Error
}
