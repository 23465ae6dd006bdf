package auth

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jimdaga/aether/internal/config"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// CalendarEventsScope grants read/write access to calendar events.
const CalendarEventsScope = "https://www.googleapis.com/auth/calendar.events"

// InitProviders initializes the Goth provider used by the calendar connect flow.
// It reports whether the provider was registered.
func InitProviders(cfg *config.Config) bool {
	// Gothic uses its own gorilla/sessions store separate from gin-contrib/sessions.
	// The default has Secure=true which breaks localhost (plain HTTP).
	gothStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	gothStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = gothStore

	if cfg.GoogleClientID == "" {
		slog.Warn("GOOGLE_CLIENT_ID not set, calendar connect is disabled; token.json fallback still applies")
		return false
	}

	provider := google.New(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleCallbackURL,
		"email",
		CalendarEventsScope,
	)
	// Refresh tokens are only returned on explicit consent.
	provider.SetPrompt("consent")

	goth.UseProviders(provider)

	slog.Info("Goth providers initialized", "providers", "google")
	return true
}
