package meetings

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/auth"
)

// HandleProcessTranscript serves POST /process-transcript.
func HandleProcessTranscript(p *Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := auth.Username(c)

		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
			return
		}

		res, err := p.Process(c.Request.Context(), username, req)
		if err != nil {
			slog.Error("Transcript processing failed", "username", username, "meeting_id", req.MeetingID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "AI Processing failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":          "success",
			"transcript":      res.Transcript,
			"calendar_events": res.CalendarEvents,
		})
	}
}
