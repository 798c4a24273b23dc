// Package backend contains the captioning providers. Every provider
// implements Generator; providers able to resolve a whole chunk in one call
// additionally implement BatchGenerator. The batch runner stays
// provider-agnostic by testing for the second interface instead of
// switching on provider names.
package backend

import (
	"context"
	"fmt"

	"captionstudio/internal/config"
	"captionstudio/internal/model"
)

// Provider identifiers accepted by New.
const (
	ProviderLmStudio   = "lmstudio"
	ProviderOllama     = "ollama"
	ProviderWd14       = "wd14"
	ProviderJoyCaption = "joycaption"
	ProviderHybrid     = "hybrid"
)

// Generator produces a caption for a single image. Failures are captured
// into the returned CaptionResult; generation never returns a Go error.
type Generator interface {
	Name() string

	// ChunkSize is the number of images dispatched to this provider per
	// batch-runner chunk.
	ChunkSize() int

	GenerateSingle(ctx context.Context, imagePath, prompt string) model.CaptionResult
}

// BatchGenerator is implemented by providers with native multi-image
// support. The adapter owns any internal fan-out up to concurrency and
// returns once the whole chunk is resolved, successes and failures alike.
type BatchGenerator interface {
	Generator

	GenerateBatch(ctx context.Context, paths []string, prompt string, concurrency int) []model.CaptionResult
}

// ConnectionStatus is the outcome of probing a network-based provider.
type ConnectionStatus struct {
	Connected bool     `json:"connected"`
	Models    []string `json:"models"`
	Error     string   `json:"error,omitempty"`
}

// New builds the Generator for a provider name from the configured backend
// settings. Unknown providers are a construction error.
func New(provider string, cfg config.BackendsConfig) (Generator, error) {
	switch provider {
	case ProviderLmStudio:
		return NewLmStudio(cfg.LmStudio), nil
	case ProviderOllama:
		return NewOllama(cfg.Ollama), nil
	case ProviderWd14:
		return NewWd14(cfg.Wd14), nil
	case ProviderJoyCaption:
		return NewJoyCaption(cfg.JoyCaption), nil
	case ProviderHybrid:
		return NewHybrid(NewWd14(cfg.Wd14), NewJoyCaption(cfg.JoyCaption)), nil
	default:
		return nil, fmt.Errorf("unknown caption provider: %q", provider)
	}
}
