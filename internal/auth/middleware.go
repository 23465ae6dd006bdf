package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/models"
)

// Context keys set by RequireAuth.
const (
	ContextUsername = "username"
	ContextUserID   = "user_id"
)

// UserLookup resolves a token subject to an account.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// RequireAuth is a middleware that ensures the request carries a valid bearer token
// for an existing account.
func RequireAuth(tokens *TokenManager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			unauthorized(c)
			return
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			if !errors.Is(err, ErrTokenExpired) {
				slog.Debug("Rejected token", "error", err)
			}
			unauthorized(c)
			return
		}

		user, err := users.GetByUsername(c.Request.Context(), claims.Username())
		if err != nil {
			slog.Warn("Token subject lookup failed", "username", claims.Username(), "error", err)
			unauthorized(c)
			return
		}

		// Identity comes from the token; a differing user_id is someone else's data.
		if requested := c.Query("user_id"); requested != "" && requested != user.Username {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Not authorized for this user"})
			return
		}

		c.Set(ContextUsername, user.Username)
		c.Set(ContextUserID, user.ID)

		c.Next()
	}
}

// Username returns the authenticated username set by RequireAuth.
func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	// Browser redirects (calendar connect) cannot set headers.
	return c.Query("access_token")
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
}
