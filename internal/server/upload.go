package server

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

// handleUpload stores a multipart image under the uploads directory with a
// random prefix so colliding client filenames never overwrite each other,
// and returns the public URL.
func (h *httpHandler) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	name := uuid.NewString() + "-" + filepath.Base(file.Filename)
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadsDir, name)); err != nil {
		h.logger.Error("upload save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": fmt.Sprintf("/uploads/%s", name)})
}
