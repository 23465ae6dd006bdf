package analytics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/auth"
)

// MemoryCounter reports how many meetings a user has stored.
type MemoryCounter interface {
	Count(ctx context.Context, username string) (int64, error)
}

// HandleAnalytics serves GET /api/analytics.
func HandleAnalytics(analyzer *Analyzer, counter MemoryCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := auth.Username(c)

		result, err := analyzer.Analyze(c.Request.Context(), username)
		if err != nil {
			slog.Error("Analytics failed", "username", username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Analytics failed"})
			return
		}

		total, err := counter.Count(c.Request.Context(), username)
		if err != nil {
			slog.Error("Analytics failed", "username", username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Analytics failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"themes":        result.Themes,
			"totalMeetings": total,
		})
	}
}

type summarizeRequest struct {
	Text string `json:"text"`
}

// HandleSummarize serves POST /api/summarize.
func HandleSummarize(analyzer *Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req summarizeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
			return
		}

		summary, err := analyzer.Summarize(c.Request.Context(), req.Text)
		if err != nil {
			if errors.Is(err, ErrEmptyText) {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "text is required"})
				return
			}
			slog.Error("Summary failed", "username", auth.Username(c), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Summary failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}
