package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) healthHandler(c *gin.Context) {
	_, active := s.runs.Active()

	c.JSON(http.StatusOK, gin.H{
		"app":       s.config.AppName,
		"status":    "ok",
		"runActive": active,
	})
}
