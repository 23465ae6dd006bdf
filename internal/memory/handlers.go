package memory

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/auth"
)

// QueryAll lists every memory instead of searching.
const QueryAll = "all"

// HandleFlashbacks serves GET /flashbacks?query=.
func HandleFlashbacks(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := auth.Username(c)

		query := strings.TrimSpace(c.Query("query"))
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "query is required"})
			return
		}

		var (
			records []Record
			err     error
		)
		if query == QueryAll {
			records, err = svc.GetAll(c.Request.Context(), username)
		} else {
			records, err = svc.Search(c.Request.Context(), query, username, DefaultTopK)
		}
		if err != nil {
			slog.Error("Failed to fetch flashbacks", "username", username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch flashbacks"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"flashbacks": records})
	}
}
