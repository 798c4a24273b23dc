package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"captionstudio/internal/config"
	"captionstudio/internal/model"
)

const ollamaChunkSize = 5

// Ollama captions images through an Ollama server's /api/generate endpoint
// with the image attached as base64.
type Ollama struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewOllama(cfg config.OllamaConfig) *Ollama {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Ollama{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (o *Ollama) Name() string   { return ProviderOllama }
func (o *Ollama) ChunkSize() int { return ollamaChunkSize }

type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) GenerateSingle(ctx context.Context, imagePath, prompt string) model.CaptionResult {
	if info, err := os.Stat(imagePath); err != nil || info.IsDir() {
		return model.Failure(imagePath, "image file not found")
	}

	b64, err := encodeImageBase64(imagePath, o.cfg.MaxImageDimension)
	if err != nil {
		return model.Failure(imagePath, err.Error())
	}

	reqBody := ollamaGenerateRequest{
		Model:  o.cfg.Model,
		Prompt: prompt,
		Images: []string{b64},
		Stream: false,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return model.Failure(imagePath, fmt.Sprintf("failed to encode request: %v", err))
	}

	endpoint := strings.TrimRight(o.cfg.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Failure(imagePath, fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return model.Failure(imagePath, fmt.Sprintf("ollama request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return model.Failure(imagePath, fmt.Sprintf(
			"ollama error: status=%d, body=%s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var parsed ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.Failure(imagePath, fmt.Sprintf("could not parse ollama response: %v", err))
	}

	caption := strings.TrimSpace(parsed.Response)
	if caption == "" {
		return model.Failure(imagePath, "ollama returned an empty response")
	}

	return model.CaptionResult{Path: imagePath, Success: true, Caption: caption}
}

// GenerateBatch resolves a chunk with bounded concurrent requests, results
// in input order.
func (o *Ollama) GenerateBatch(ctx context.Context, paths []string, prompt string, concurrency int) []model.CaptionResult {
	return fanOut(ctx, paths, concurrency, func(ctx context.Context, path string) model.CaptionResult {
		return o.GenerateSingle(ctx, path, prompt)
	})
}

// TestConnection lists the locally available models via /api/tags.
func (o *Ollama) TestConnection(ctx context.Context) ConnectionStatus {
	endpoint := strings.TrimRight(o.cfg.BaseURL, "/") + "/api/tags"

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ConnectionStatus{Error: err.Error()}
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return ConnectionStatus{Error: fmt.Sprintf("connection failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ConnectionStatus{Error: fmt.Sprintf("server returned status: %d", resp.StatusCode)}
	}

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ConnectionStatus{Error: fmt.Sprintf("failed to parse response: %v", err)}
	}

	models := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		models = append(models, m.Name)
	}
	return ConnectionStatus{Connected: true, Models: models}
}
