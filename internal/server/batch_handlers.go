package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"captionstudio/internal/backend"
	"captionstudio/internal/batch"
	"captionstudio/internal/controller"
	"captionstudio/internal/index"
	"captionstudio/internal/model"
	"captionstudio/internal/prompt"
)

// BatchRequest creates and starts a captioning run.
type BatchRequest struct {
	RootPath    string                  `json:"root_path" binding:"required"`
	Provider    string                  `json:"provider" binding:"required"`
	Criteria    model.SelectionCriteria `json:"criteria"`
	Prompt      prompt.Config           `json:"prompt"`
	Concurrency int                     `json:"concurrency"`
}

func (s *Server) startBatchHandler(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	images, err := index.Scan(req.RootPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gen, err := backend.New(req.Provider, s.config.Backends)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	concurrency := req.Concurrency
	if concurrency == 0 {
		concurrency = s.config.Batch.Concurrency
	}

	targets := batch.SelectTargets(images, req.Criteria)
	job, err := batch.NewJob(targets, gen, prompt.Build(req.Prompt), concurrency)
	if err != nil {
		if errors.Is(err, batch.ErrSelectionEmpty) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The run outlives this request, so it gets the process context
	// rather than the request context.
	snap, err := s.runs.Start(context.Background(), job, s.store)
	if err != nil {
		if errors.Is(err, controller.ErrRunActive) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Failed to start batch run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": snap.ID, "total": snap.Total})
}

func (s *Server) activeBatchHandler(c *gin.Context) {
	snap, ok := s.runs.Active()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active run"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (s *Server) getBatchHandler(c *gin.Context) {
	snap, ok := s.runs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (s *Server) cancelBatchHandler(c *gin.Context) {
	id := c.Param("id")
	s.runs.Cancel(id)

	snap, ok := s.runs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, snap)
}
