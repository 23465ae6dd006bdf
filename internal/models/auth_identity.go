package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/jimdaga/aether/internal/crypto"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// ProviderGoogle identifies Google Calendar identities.
const ProviderGoogle = "google"

// ErrTokenUnreadable marks stored tokens the current key cannot decrypt,
// typically after the encryption key changed.
var ErrTokenUnreadable = errors.New("stored token cannot be decrypted")

var encryptor *crypto.TokenEncryptor

// SetEncryptor installs the token encryptor used by AuthIdentity hooks.
// Must be called before any database operations involving AuthIdentity.
func SetEncryptor(e *crypto.TokenEncryptor) {
	encryptor = e
}

// AuthIdentity is a user's connected calendar account with encrypted token storage
type AuthIdentity struct {
	gorm.Model
	UserID         uint   `gorm:"not null;uniqueIndex:idx_auth_identities_user_provider,where:deleted_at IS NULL"`
	User           User   `gorm:"constraint:OnDelete:CASCADE;"`
	Provider       string `gorm:"not null;uniqueIndex:idx_auth_identities_user_provider,where:deleted_at IS NULL"`
	ProviderUserID string `gorm:"not null"`
	Email          string
	AccessToken    string `gorm:"type:text"` // stored encrypted
	RefreshToken   string `gorm:"type:text"` // stored encrypted
	TokenExpiry    *time.Time
}

// OAuthToken converts the stored credentials into an oauth2 token.
func (a *AuthIdentity) OAuthToken() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    "Bearer",
	}
	if a.TokenExpiry != nil {
		tok.Expiry = *a.TokenExpiry
	}
	return tok
}

// BeforeSave encrypts tokens before saving to database.
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	if encryptor == nil {
		return nil
	}

	access, err := encryptor.Encrypt(a.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := encryptor.Encrypt(a.RefreshToken)
	if err != nil {
		return err
	}
	a.AccessToken, a.RefreshToken = access, refresh
	return nil
}

// AfterSave restores plaintext tokens on the in-memory struct.
func (a *AuthIdentity) AfterSave(tx *gorm.DB) error {
	return a.decrypt()
}

// AfterFind decrypts tokens after loading from database
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	return a.decrypt()
}

func (a *AuthIdentity) decrypt() error {
	if encryptor == nil {
		return nil
	}

	access, err := encryptor.Decrypt(a.AccessToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenUnreadable, err)
	}
	refresh, err := encryptor.Decrypt(a.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenUnreadable, err)
	}
	a.AccessToken, a.RefreshToken = access, refresh
	return nil
}
