package calendar

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/auth"
	"github.com/jimdaga/aether/internal/intent"
)

// HandleSyncCalendar serves POST /api/sync-calendar.
func HandleSyncCalendar(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := auth.Username(c)

		var candidate intent.Event
		if err := c.ShouldBindJSON(&candidate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request body"})
			return
		}

		link, err := svc.Sync(c.Request.Context(), username, candidate)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"status": "success", "link": link})
		case errors.Is(err, ErrInvalidEvent):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		case errors.Is(err, ErrAuthRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Authentication required"})
		default:
			slog.Error("Calendar sync failed", "username", username, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "Failed to create calendar event"})
		}
	}
}
