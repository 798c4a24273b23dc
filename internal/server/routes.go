package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.CORS.AllowedOrigins,
		AllowMethods:     s.config.CORS.AllowedMethods,
		AllowHeaders:     s.config.CORS.AllowedHeaders,
		AllowCredentials: s.config.CORS.AllowCredentials,
		MaxAge:           time.Duration(s.config.CORS.MaxAge) * time.Second,
	}))

	r.GET("/health", s.healthHandler)

	r.POST("/project/open", s.openProjectHandler)
	r.POST("/project/duplicates", s.duplicatesHandler)

	r.GET("/thumbnail", s.thumbnailHandler)

	r.POST("/captions/read", s.readCaptionHandler)
	r.POST("/captions/write", s.writeCaptionHandler)
	r.POST("/captions/tags/add", s.addTagHandler)
	r.POST("/captions/tags/remove", s.removeTagHandler)
	r.POST("/captions/tags/reorder", s.reorderTagsHandler)

	r.GET("/ratings", s.getRatingsHandler)
	r.POST("/ratings", s.setRatingHandler)
	r.DELETE("/ratings", s.clearRatingsHandler)

	r.POST("/backends/test", s.testBackendHandler)

	r.POST("/batch", s.startBatchHandler)
	r.GET("/batch/active", s.activeBatchHandler)
	r.GET("/batch/:id", s.getBatchHandler)
	r.POST("/batch/:id/cancel", s.cancelBatchHandler)

	r.POST("/export", s.exportHandler)
	r.POST("/export/by-rating", s.exportByRatingHandler)

	return r
}
