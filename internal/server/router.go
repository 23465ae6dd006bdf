// Package server assembles the HTTP API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/analytics"
	"github.com/jimdaga/aether/internal/auth"
	"github.com/jimdaga/aether/internal/calendar"
	"github.com/jimdaga/aether/internal/health"
	"github.com/jimdaga/aether/internal/logging"
	"github.com/jimdaga/aether/internal/meetings"
	"github.com/jimdaga/aether/internal/memory"
	"github.com/jimdaga/aether/internal/observability"
	"github.com/jimdaga/aether/internal/transcription"
	"github.com/jimdaga/aether/internal/users"
)

// RootMessage is returned by GET /.
const RootMessage = "AETHER Backend is Active"

const sessionName = "aether_session"

// Deps are the services the router dispatches to.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	SessionSecret string
	Secure        bool
	FrontendURL   string

	// CalendarConnect enables the OAuth connect routes.
	CalendarConnect bool

	Tokens        *auth.TokenManager
	Users         *users.Repository
	Transcription *transcription.Service
	Meetings      *meetings.Processor
	Memory        *memory.Service
	Analyzer      *analytics.Analyzer
	Calendar      *calendar.Service
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(d.Logger))
	r.Use(d.Metrics.GinMiddleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	store := cookie.NewStore([]byte(d.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   d.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": RootMessage})
	})
	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	r.POST("/api/signup", auth.HandleSignup(d.Users, d.Tokens))
	r.POST("/api/login", auth.HandleLogin(d.Users, d.Tokens))
	r.GET("/api/calendar/callback", calendarConnect(d.CalendarConnect, auth.HandleCalendarCallback(d.Users, d.FrontendURL)))

	guarded := r.Group("/")
	guarded.Use(auth.RequireAuth(d.Tokens, d.Users))
	{
		guarded.POST("/api/transcribe", transcription.HandleTranscribe(d.Transcription))
		guarded.POST("/process-transcript", meetings.HandleProcessTranscript(d.Meetings))
		guarded.GET("/api/analytics", analytics.HandleAnalytics(d.Analyzer, d.Memory))
		guarded.POST("/api/summarize", analytics.HandleSummarize(d.Analyzer))
		guarded.GET("/flashbacks", memory.HandleFlashbacks(d.Memory))
		guarded.POST("/api/sync-calendar", calendar.HandleSyncCalendar(d.Calendar))
		guarded.GET("/api/calendar/connect", calendarConnect(d.CalendarConnect, auth.HandleCalendarConnect))
	}

	return r
}

// calendarConnect answers 503 when no OAuth client is configured.
func calendarConnect(enabled bool, h gin.HandlerFunc) gin.HandlerFunc {
	if enabled {
		return h
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Calendar connect is not configured"})
	}
}
