package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"captionstudio/internal/index"
)

// ProjectRequest identifies a project by its root folder.
type ProjectRequest struct {
	RootPath string `json:"root_path" binding:"required"`
}

func (s *Server) openProjectHandler(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	images, err := index.Scan(req.RootPath)
	if err != nil {
		log.Error().Err(err).Str("root", req.RootPath).Msg("Project scan failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rootPath": req.RootPath,
		"images":   images,
		"count":    len(images),
	})
}

func (s *Server) duplicatesHandler(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	groups, err := index.FindDuplicates(req.RootPath)
	if err != nil {
		log.Error().Err(err).Str("root", req.RootPath).Msg("Duplicate scan failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}
