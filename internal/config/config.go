package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config represents the entire application configuration
type Config struct {
	Env      string         `json:"env"`
	Port     int            `json:"port"`
	AppName  string         `json:"app_name"`
	Backends BackendsConfig `json:"backends"`
	Batch    BatchConfig    `json:"batch"`
	Redis    RedisConfig    `json:"redis"`
	S3       S3Config       `json:"s3"`
	Logging  LoggingConfig  `json:"logging"`
	CORS     CORSConfig     `json:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age,omitempty"`
}

// BackendsConfig groups the connection settings of every captioning provider.
type BackendsConfig struct {
	LmStudio   LmStudioConfig   `json:"lm_studio"`
	Ollama     OllamaConfig     `json:"ollama"`
	Wd14       Wd14Config       `json:"wd14"`
	JoyCaption JoyCaptionConfig `json:"joycaption"`
}

// LmStudioConfig contains settings for the LM Studio (OpenAI-compatible) backend.
type LmStudioConfig struct {
	BaseURL           string `json:"base_url"`
	Model             string `json:"model"`
	MaxTokens         int    `json:"max_tokens"`
	TimeoutSecs       int    `json:"timeout_secs"`
	MaxImageDimension int    `json:"max_image_dimension,omitempty"`
}

// OllamaConfig contains settings for the Ollama backend.
type OllamaConfig struct {
	BaseURL           string `json:"base_url"`
	Model             string `json:"model"`
	TimeoutSecs       int    `json:"timeout_secs"`
	MaxImageDimension int    `json:"max_image_dimension,omitempty"`
}

// Wd14Config contains settings for the WD14 tagger script backend.
type Wd14Config struct {
	PythonPath string `json:"python_path"`
	ScriptPath string `json:"script_path"`
}

// JoyCaptionConfig contains settings for the JoyCaption script backend.
type JoyCaptionConfig struct {
	PythonPath string `json:"python_path"`
	ScriptPath string `json:"script_path"`
	Mode       string `json:"mode"`
	LowVRAM    bool   `json:"low_vram"`
}

// BatchConfig contains defaults for batch captioning runs.
type BatchConfig struct {
	Concurrency int `json:"concurrency"`
}

// RedisConfig contains the optional thumbnail cache connection. An empty
// address disables caching entirely.
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
	TTLSecs  int    `json:"ttl_secs"`
}

// S3Config contains the optional export upload target. An empty bucket
// disables uploads.
type S3Config struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
}

// LoggingConfig contains logging-related configurations
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LoadConfig reads configuration from the specified file path
func LoadConfig(filePath string) (*Config, error) {
	configData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "caption-studio"
	}
	if c.Port == 0 {
		c.Port = 8420
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Backends.LmStudio.BaseURL == "" {
		c.Backends.LmStudio.BaseURL = "http://localhost:1234"
	}
	if c.Backends.LmStudio.MaxTokens == 0 {
		c.Backends.LmStudio.MaxTokens = 300
	}
	if c.Backends.LmStudio.TimeoutSecs == 0 {
		c.Backends.LmStudio.TimeoutSecs = 120
	}
	if c.Backends.Ollama.BaseURL == "" {
		c.Backends.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Backends.Ollama.TimeoutSecs == 0 {
		c.Backends.Ollama.TimeoutSecs = 120
	}
	if c.Backends.Wd14.PythonPath == "" {
		c.Backends.Wd14.PythonPath = "python"
	}
	if c.Backends.JoyCaption.PythonPath == "" {
		c.Backends.JoyCaption.PythonPath = "python"
	}
	if c.Backends.JoyCaption.Mode == "" {
		c.Backends.JoyCaption.Mode = "descriptive"
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = 2
	}
	// gin-contrib/cors panics on an empty origin list, so a config without
	// a CORS section still needs usable defaults. 1420 is the Tauri dev
	// server, 5173 is Vite.
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:1420", "http://localhost:5173"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept"}
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "capstudio"
	}
	if c.Redis.TTLSecs == 0 {
		c.Redis.TTLSecs = 3600
	}
}
