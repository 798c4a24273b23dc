package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"captionstudio/internal/export"
)

// ExportRequest wraps export options with an optional upload flag. Upload
// applies only to ZIP exports and requires S3 to be configured.
type ExportRequest struct {
	export.Options
	Upload bool `json:"upload"`
}

func (s *Server) exportHandler(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Upload && (!req.AsZip || s.uploader == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Upload requires a ZIP export and configured S3 credentials"})
		return
	}

	res, err := export.Export(req.Options)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"success":        res.Success,
		"exported_count": res.ExportedCount,
		"skipped_count":  res.SkippedCount,
		"output_path":    res.OutputPath,
	}

	if req.Upload {
		f, err := os.Open(res.OutputPath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()

		url, err := s.uploader.Upload(c.Request.Context(), filepath.Base(res.OutputPath), f)
		if err != nil {
			log.Error().Err(err).Msg("Export upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response["url"] = url
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) exportByRatingHandler(c *gin.Context) {
	var req export.ByRatingOptions
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := export.ExportByRating(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}
