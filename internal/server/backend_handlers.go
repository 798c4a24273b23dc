package server

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"captionstudio/internal/backend"
)

// BackendTestRequest probes a captioning backend's availability. BaseURL,
// when set, overrides the configured address for HTTP backends.
type BackendTestRequest struct {
	Provider string `json:"provider" binding:"required"`
	BaseURL  string `json:"base_url"`
}

func (s *Server) testBackendHandler(c *gin.Context) {
	var req BackendTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	status, err := s.probeBackend(c, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) probeBackend(c *gin.Context, req BackendTestRequest) (backend.ConnectionStatus, error) {
	backends := s.config.Backends

	switch req.Provider {
	case backend.ProviderLmStudio:
		cfg := backends.LmStudio
		if req.BaseURL != "" {
			cfg.BaseURL = req.BaseURL
		}
		return backend.NewLmStudio(cfg).TestConnection(c.Request.Context()), nil

	case backend.ProviderOllama:
		cfg := backends.Ollama
		if req.BaseURL != "" {
			cfg.BaseURL = req.BaseURL
		}
		return backend.NewOllama(cfg).TestConnection(c.Request.Context()), nil

	case backend.ProviderWd14:
		return scriptStatus(backends.Wd14.ScriptPath), nil

	case backend.ProviderJoyCaption:
		// An empty script path means the installed joycaption package.
		if backends.JoyCaption.ScriptPath == "" {
			return backend.ConnectionStatus{Connected: true}, nil
		}
		return scriptStatus(backends.JoyCaption.ScriptPath), nil

	case backend.ProviderHybrid:
		wd14 := scriptStatus(backends.Wd14.ScriptPath)
		if !wd14.Connected {
			return wd14, nil
		}
		if backends.JoyCaption.ScriptPath == "" {
			return backend.ConnectionStatus{Connected: true}, nil
		}
		return scriptStatus(backends.JoyCaption.ScriptPath), nil

	default:
		return backend.ConnectionStatus{}, fmt.Errorf("unknown provider %q", req.Provider)
	}
}

// scriptStatus reports whether a script-based backend is usable, which
// only requires its script to exist on disk.
func scriptStatus(scriptPath string) backend.ConnectionStatus {
	if scriptPath == "" {
		return backend.ConnectionStatus{Error: "script path is not set"}
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return backend.ConnectionStatus{Error: fmt.Sprintf("script not found: %s", scriptPath)}
	}
	return backend.ConnectionStatus{Connected: true}
}
