package transcription

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/aether/internal/auth"
)

// HandleTranscribe accepts a multipart "file" upload and returns {"transcript": ...}.
func HandleTranscribe(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := auth.Username(c)

		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is required"})
			return
		}

		file, err := header.Open()
		if err != nil {
			slog.Error("Failed to open upload", "username", username, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcription failed"})
			return
		}
		defer file.Close()

		transcript, err := svc.Transcribe(c.Request.Context(), username, file, header.Filename)
		if err != nil {
			if errors.Is(err, ErrEmptyUpload) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is empty"})
				return
			}
			slog.Error("Transcription failed", "username", username, "filename", header.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcription failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"transcript": transcript})
	}
}
