package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/models"
	"github.com/jimdaga/aether/internal/users"
	"github.com/markbates/goth/gothic"
)

// UserStore is the account persistence used by signup and login.
type UserStore interface {
	UserLookup
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	TouchLogin(ctx context.Context, userID uint) error
}

// IdentityStore persists connected calendar identities.
type IdentityStore interface {
	UserLookup
	UpsertIdentity(ctx context.Context, identity *models.AuthIdentity) error
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleSignup registers a new account and returns a session token.
func HandleSignup(store UserStore, tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Username and password are required"})
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			slog.Error("Signup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not create account"})
			return
		}

		user, err := store.Create(c.Request.Context(), req.Username, hash)
		if err != nil {
			if errors.Is(err, users.ErrUsernameTaken) {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "Username already registered"})
				return
			}
			slog.Error("Signup failed", "username", req.Username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not create account"})
			return
		}

		issueToken(c, tokens, user.Username)
		slog.Info("User registered", "username", user.Username)
	}
}

var checkPassword = VerifyPassword

// HandleLogin verifies form credentials and returns a session token.
func HandleLogin(store UserStore, tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.PostForm("username"))
		password := c.PostForm("password")
		if username == "" || password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Username and password are required"})
			return
		}

		user, err := store.GetByUsername(c.Request.Context(), username)
		if err != nil && !errors.Is(err, users.ErrUserNotFound) {
			slog.Error("Login lookup failed", "username", username, "error", err)
		}
		hash := unknownUserPasswordHash()
		if err == nil {
			hash = user.PasswordHash
		}
		matched := checkPassword(password, hash)
		if err != nil || !matched {
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
			return
		}

		if err := store.TouchLogin(c.Request.Context(), user.ID); err != nil {
			slog.Warn("Failed to record login", "username", username, "error", err)
		}

		issueToken(c, tokens, user.Username)
	}
}

func issueToken(c *gin.Context, tokens *TokenManager, username string) {
	token, err := tokens.IssueToken(username, 0)
	if err != nil {
		slog.Error("Token issue failed", "username", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not issue token"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

const sessionUsernameKey = "calendar_connect_username"

// HandleCalendarConnect starts the Google consent flow for the authenticated user.
// Must run behind RequireAuth.
func HandleCalendarConnect(c *gin.Context) {
	session := sessions.Default(c)
	session.Set(sessionUsernameKey, Username(c))
	if err := session.Save(); err != nil {
		slog.Error("Session save error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not start calendar connection"})
		return
	}

	// Gothic requires the "provider" query parameter
	q := c.Request.URL.Query()
	q.Del("access_token")
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCalendarCallback completes the consent flow and stores the identity,
// then redirects back to the frontend.
func HandleCalendarCallback(store IdentityStore, frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Set("provider", "google")
		c.Request.URL.RawQuery = q.Encode()

		session := sessions.Default(c)
		username, _ := session.Get(sessionUsernameKey).(string)
		if username == "" {
			slog.Warn("Calendar callback without pending connection")
			c.Redirect(http.StatusFound, frontendRedirect(frontendURL, "error"))
			return
		}

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			slog.Error("Calendar auth error", "username", username, "error", err)
			c.Redirect(http.StatusFound, frontendRedirect(frontendURL, "error"))
			return
		}

		user, err := store.GetByUsername(c.Request.Context(), username)
		if err != nil {
			slog.Error("Calendar callback user lookup failed", "username", username, "error", err)
			c.Redirect(http.StatusFound, frontendRedirect(frontendURL, "error"))
			return
		}

		identity := &models.AuthIdentity{
			UserID:         user.ID,
			Provider:       models.ProviderGoogle,
			ProviderUserID: gothUser.UserID,
			Email:          gothUser.Email,
			AccessToken:    gothUser.AccessToken,
			RefreshToken:   gothUser.RefreshToken,
		}
		if !gothUser.ExpiresAt.IsZero() {
			expiry := gothUser.ExpiresAt.UTC()
			identity.TokenExpiry = &expiry
		}

		if err := store.UpsertIdentity(c.Request.Context(), identity); err != nil {
			slog.Error("Failed to store calendar identity", "username", username, "error", err)
			c.Redirect(http.StatusFound, frontendRedirect(frontendURL, "error"))
			return
		}

		session.Delete(sessionUsernameKey)
		if err := session.Save(); err != nil {
			slog.Warn("Session clear error", "error", err)
		}

		slog.Info("Calendar connected", "username", username, "email", gothUser.Email)
		c.Redirect(http.StatusFound, frontendRedirect(frontendURL, "connected"))
	}
}

func frontendRedirect(frontendURL, outcome string) string {
	return fmt.Sprintf("%s/?calendar=%s", strings.TrimRight(frontendURL, "/"), outcome)
}
