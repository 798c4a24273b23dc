package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"captionstudio/internal/config"
	"captionstudio/internal/model"
)

const (
	lmStudioChunkSize  = 5
	lmStudioMinTimeout = 1 * time.Second
	lmStudioMaxTimeout = 600 * time.Second
)

// LmStudio captions images through an LM Studio server speaking the
// OpenAI-compatible chat completions API with image_url content parts.
type LmStudio struct {
	cfg     config.LmStudioConfig
	client  *http.Client
	timeout time.Duration
}

func NewLmStudio(cfg config.LmStudioConfig) *LmStudio {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout < lmStudioMinTimeout {
		timeout = lmStudioMinTimeout
	}
	if timeout > lmStudioMaxTimeout {
		timeout = lmStudioMaxTimeout
	}

	return &LmStudio{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (l *LmStudio) Name() string   { return ProviderLmStudio }
func (l *LmStudio) ChunkSize() int { return lmStudioChunkSize }

type chatImageURL struct {
	URL string `json:"url"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateSingle captions one image. Connectivity problems, server errors
// and malformed responses all come back as failed results, never as errors.
func (l *LmStudio) GenerateSingle(ctx context.Context, imagePath, prompt string) model.CaptionResult {
	if info, err := os.Stat(imagePath); err != nil || info.IsDir() {
		return model.Failure(imagePath, "image file not found")
	}

	dataURL, err := encodeImageDataURL(imagePath, l.cfg.MaxImageDimension)
	if err != nil {
		return model.Failure(imagePath, err.Error())
	}

	modelID := l.cfg.Model
	if modelID == "" {
		modelID = "default"
	}

	reqBody := chatRequest{
		Model: modelID,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
			},
		}},
		MaxTokens:   l.cfg.MaxTokens,
		Temperature: 0.7,
		Stream:      false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return model.Failure(imagePath, fmt.Sprintf("failed to encode request: %v", err))
	}

	endpoint := strings.TrimRight(l.cfg.BaseURL, "/") + "/v1/chat/completions"

	resp, err := l.post(ctx, endpoint, body)
	if err != nil {
		if isTimeout(err) {
			// One retry after a timeout; large models can stall on the
			// first request while weights load.
			log.Warn().Str("path", imagePath).Msg("LM Studio request timed out, retrying once")
			resp, err = l.post(ctx, endpoint, body)
			if err != nil {
				return model.Failure(imagePath, fmt.Sprintf(
					"request timed out after %s (tried 2 times)", l.timeout))
			}
		} else {
			return model.Failure(imagePath, fmt.Sprintf("request failed: %v", err))
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return model.Failure(imagePath, fmt.Sprintf(
			"server error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.Failure(imagePath, fmt.Sprintf("failed to parse response: %v", err))
	}
	if len(parsed.Choices) == 0 {
		return model.Failure(imagePath, "response contained no choices")
	}

	return model.CaptionResult{
		Path:    imagePath,
		Success: true,
		Caption: strings.TrimSpace(parsed.Choices[0].Message.Content),
	}
}

// GenerateBatch resolves a chunk with bounded concurrent requests, results
// in input order.
func (l *LmStudio) GenerateBatch(ctx context.Context, paths []string, prompt string, concurrency int) []model.CaptionResult {
	return fanOut(ctx, paths, concurrency, func(ctx context.Context, path string) model.CaptionResult {
		return l.GenerateSingle(ctx, path, prompt)
	})
}

// TestConnection probes the server and lists available models. Connectivity
// problems are reported in the status, not as an error.
func (l *LmStudio) TestConnection(ctx context.Context) ConnectionStatus {
	endpoint := strings.TrimRight(l.cfg.BaseURL, "/") + "/v1/models"

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ConnectionStatus{Error: err.Error()}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return ConnectionStatus{Error: fmt.Sprintf("connection failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ConnectionStatus{Error: fmt.Sprintf("server returned status: %d", resp.StatusCode)}
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ConnectionStatus{Error: fmt.Sprintf("failed to parse response: %v", err)}
	}

	models := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		models = append(models, m.ID)
	}
	return ConnectionStatus{Connected: true, Models: models}
}

func (l *LmStudio) post(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return l.client.Do(req)
}

func isTimeout(err error) bool {
	if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
		return true
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	return false
}
