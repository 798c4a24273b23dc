package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"captionstudio/internal/index"
	"captionstudio/internal/model"
)

// RatingRequest sets one image's rating within a project.
type RatingRequest struct {
	RootPath     string `json:"root_path" binding:"required"`
	RelativePath string `json:"relative_path" binding:"required"`
	Rating       string `json:"rating"`
}

func (s *Server) getRatingsHandler(c *gin.Context) {
	root := c.Query("root")
	if root == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing root parameter"})
		return
	}

	c.JSON(http.StatusOK, index.LoadRatings(root))
}

func (s *Server) setRatingHandler(c *gin.Context) {
	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rating := model.ParseRating(req.Rating)
	if req.Rating != "" && req.Rating != string(rating) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid rating %q", req.Rating)})
		return
	}

	if err := index.SetRating(req.RootPath, req.RelativePath, rating); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rating": rating})
}

func (s *Server) clearRatingsHandler(c *gin.Context) {
	root := c.Query("root")
	if root == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing root parameter"})
		return
	}

	cleared, err := index.ClearRatings(root)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
