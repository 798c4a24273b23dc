package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"captionstudio/internal/cache"
	"captionstudio/internal/config"
	"captionstudio/internal/server"
	"captionstudio/internal/storage"
	"captionstudio/internal/thumb"
)

func main() {
	configPath := "config/config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Load configuration; fall back to defaults when no file exists so a
	// local install works out of the box.
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
			return
		}
		cfg = config.Default()
	}

	setupLogger(cfg.Logging)
	log.Info().Str("app", cfg.AppName).Int("port", cfg.Port).Msg("Starting caption studio API")

	// Thumbnail cache is optional: no Redis address, no cache.
	var thumbCache cache.Cache
	if cfg.Redis.Address != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, thumbnails will render uncached")
		} else {
			thumbCache = redisCache
			defer redisCache.Close()
		}
	}
	thumbs := thumb.NewService(thumbCache, time.Duration(cfg.Redis.TTLSecs)*time.Second)

	// Export uploads are optional: no bucket, no uploader.
	var uploader storage.Uploader
	if cfg.S3.Bucket != "" {
		uploader, err = storage.NewS3Uploader(cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("S3 unavailable, export uploads disabled")
			uploader = nil
		}
	}

	srv := server.New(*cfg, thumbs, uploader)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("Listening")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown was not clean")
	}
}

func setupLogger(config config.LoggingConfig) {
	// Set global log level
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure logger output
	switch config.Format {
	case "json":
		// JSON is the default for zerolog
	case "console", "combined":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	// Add timestamp
	log.Logger = log.With().Timestamp().Logger()
}
