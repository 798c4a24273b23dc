package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CaptionRequest addresses one image's caption sidecar.
type CaptionRequest struct {
	ImagePath string `json:"image_path" binding:"required"`
}

// CaptionWriteRequest replaces an image's tag list.
type CaptionWriteRequest struct {
	ImagePath string   `json:"image_path" binding:"required"`
	Tags      []string `json:"tags"`
}

// TagRequest adds or removes a single tag.
type TagRequest struct {
	ImagePath string `json:"image_path" binding:"required"`
	Tag       string `json:"tag" binding:"required"`
}

func (s *Server) readCaptionHandler(c *gin.Context) {
	var req CaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	data, err := s.store.Read(req.ImagePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, data)
}

func (s *Server) writeCaptionHandler(c *gin.Context) {
	var req CaptionWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := s.store.Write(req.ImagePath, req.Tags); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": req.Tags})
}

func (s *Server) addTagHandler(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tags, err := s.store.AddTag(req.ImagePath, req.Tag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (s *Server) removeTagHandler(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tags, err := s.store.RemoveTag(req.ImagePath, req.Tag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (s *Server) reorderTagsHandler(c *gin.Context) {
	var req CaptionWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := s.store.Reorder(req.ImagePath, req.Tags); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": req.Tags})
}
