package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jimdaga/aether/internal/models"
	"github.com/jimdaga/aether/internal/users"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// CredentialSource resolves the OAuth token used to act on a user's calendar.
// Implementations return ErrAuthRequired without touching the network when
// nothing usable is stored.
type CredentialSource interface {
	TokenSource(ctx context.Context, username string) (oauth2.TokenSource, error)
}

// IdentityStore reads connected calendar identities.
type IdentityStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetIdentity(ctx context.Context, userID uint, provider string) (*models.AuthIdentity, error)
}

// IdentityCredentials uses the identity stored by the calendar connect flow.
type IdentityCredentials struct {
	store  IdentityStore
	config *oauth2.Config
}

// NewIdentityCredentials creates an IdentityCredentials for the given OAuth client.
func NewIdentityCredentials(store IdentityStore, clientID, clientSecret string) *IdentityCredentials {
	return &IdentityCredentials{
		store: store,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarEventsScope},
		},
	}
}

// TokenSource returns a refreshing token source for the user's identity.
func (c *IdentityCredentials) TokenSource(ctx context.Context, username string) (oauth2.TokenSource, error) {
	user, err := c.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrAuthRequired
		}
		return nil, err
	}

	identity, err := c.store.GetIdentity(ctx, user.ID, models.ProviderGoogle)
	if err != nil {
		if errors.Is(err, users.ErrIdentityNotFound) {
			return nil, ErrAuthRequired
		}
		if errors.Is(err, users.ErrIdentityUnreadable) {
			slog.Warn("Stored calendar identity is unreadable, reconnect required", "username", username, "error", err)
			return nil, ErrAuthRequired
		}
		return nil, err
	}

	tok := identity.OAuthToken()
	if !usable(tok) {
		return nil, ErrAuthRequired
	}
	return c.config.TokenSource(ctx, tok), nil
}

// FileCredentials reads an operator token file paired with a client-secrets file.
type FileCredentials struct {
	tokenFile       string
	credentialsFile string
}

// NewFileCredentials creates a FileCredentials.
func NewFileCredentials(tokenFile, credentialsFile string) *FileCredentials {
	return &FileCredentials{tokenFile: tokenFile, credentialsFile: credentialsFile}
}

// storedToken accepts both the oauth2 JSON field names and the ones written by
// Google's Python client ("token", "expiry").
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
}

// TokenSource ignores username: the file belongs to the operator.
func (c *FileCredentials) TokenSource(ctx context.Context, _ string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(c.tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrAuthRequired
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("Unreadable calendar token file", "path", c.tokenFile, "error", err)
		return nil, ErrAuthRequired
	}

	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
		Expiry:       st.Expiry,
	}
	if tok.AccessToken == "" {
		tok.AccessToken = st.Token
	}
	if !usable(tok) {
		return nil, ErrAuthRequired
	}

	cfg, err := c.oauthConfig(st)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}

func (c *FileCredentials) oauthConfig(st storedToken) (*oauth2.Config, error) {
	data, err := os.ReadFile(c.credentialsFile)
	if err == nil {
		cfg, err := google.ConfigFromJSON(data, gcal.CalendarEventsScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	// Python-written token files carry the client inline.
	if st.ClientID == "" {
		return nil, ErrAuthRequired
	}
	return &oauth2.Config{
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarEventsScope},
	}, nil
}

// ChainCredentials tries each source in order, moving on while they report ErrAuthRequired.
type ChainCredentials []CredentialSource

// TokenSource returns the first usable token source.
func (c ChainCredentials) TokenSource(ctx context.Context, username string) (oauth2.TokenSource, error) {
	for _, src := range c {
		ts, err := src.TokenSource(ctx, username)
		if errors.Is(err, ErrAuthRequired) {
			continue
		}
		return ts, err
	}
	return nil, ErrAuthRequired
}

// usable reports whether tok can authorize a request now or after a refresh.
func usable(tok *oauth2.Token) bool {
	if tok.RefreshToken != "" {
		return true
	}
	return tok.AccessToken != "" && (tok.Expiry.IsZero() || tok.Expiry.After(time.Now()))
}
