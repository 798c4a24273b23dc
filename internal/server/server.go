// Package server exposes the captioning workspace over HTTP for the
// desktop frontend.
package server

import (
	"fmt"
	"net/http"
	"time"

	"captionstudio/internal/captions"
	"captionstudio/internal/config"
	"captionstudio/internal/controller"
	"captionstudio/internal/storage"
	"captionstudio/internal/thumb"
)

type Server struct {
	config   config.Config
	runs     *controller.RunController
	store    *captions.Store
	thumbs   *thumb.Service
	uploader storage.Uploader
}

// New wires the service and returns an http.Server ready to listen.
// uploader may be nil when S3 export upload is not configured.
func New(cfg config.Config, thumbs *thumb.Service, uploader storage.Uploader) *http.Server {
	server := Server{
		config:   cfg,
		runs:     controller.NewRunController(),
		store:    captions.NewStore(),
		thumbs:   thumbs,
		uploader: uploader,
	}

	// Export runs synchronously inside its handler and can copy a large
	// dataset (plus an S3 upload), so the write timeout must cover minutes
	// of handler time, not seconds.
	return &http.Server{
		Addr:         fmt.Sprintf(":%v", cfg.Port),
		Handler:      server.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
}
