package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	envConfigPath = "STORYSTREAM_CONFIG"
	envBackend    = "STORYSTREAM_BACKEND"
	envModel      = "STORYSTREAM_MODEL"
	envCapacity   = "STORYSTREAM_RELAY_CAPACITY"
	envRegion     = "STORYSTREAM_AWS_REGION"
)

// Config is the root runtime configuration. It is loaded from config.json
// when present; in Lambda the file usually does not exist and everything
// comes from defaults plus environment overrides.
type Config struct {
	Inference InferenceConfig `json:"inference"`
	Relay     RelayConfig     `json:"relay"`
	AWS       AWSConfig       `json:"aws"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// InferenceConfig selects the inference backend and its sampling settings.
type InferenceConfig struct {
	Backend     string  `json:"backend"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
}

// RelayConfig bounds the in-memory fragment conveyor between the ingest
// and dispatch workers.
type RelayConfig struct {
	Capacity int `json:"capacity"`
}

// AWSConfig holds region settings for the SDK clients built at cold start.
type AWSConfig struct {
	Region string `json:"region"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// Default returns the configuration matching the original deployment:
// Claude v2 on Bedrock in us-east-1 with a capacity-100 relay conveyor.
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			Backend:     "bedrock",
			Model:       "anthropic.claude-v2",
			MaxTokens:   300,
			Temperature: 0.7,
			TopK:        250,
			TopP:        1,
		},
		Relay: RelayConfig{Capacity: 100},
		AWS:   AWSConfig{Region: "us-east-1"},
	}
}

// LoadConfig resolves config.json when available, unmarshals it over the
// defaults, and applies environment overrides.
func LoadConfig() (*Config, error) {
	cfg := Default()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Inference.Backend) == "" {
		return fmt.Errorf("inference.backend is required")
	}
	if strings.TrimSpace(c.Inference.Model) == "" {
		return fmt.Errorf("inference.model is required")
	}
	if c.Relay.Capacity < 0 {
		return fmt.Errorf("relay.capacity must not be negative")
	}

	return nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if backend := strings.TrimSpace(os.Getenv(envBackend)); backend != "" {
		cfg.Inference.Backend = backend
	}
	if model := strings.TrimSpace(os.Getenv(envModel)); model != "" {
		cfg.Inference.Model = model
	}
	if region := strings.TrimSpace(os.Getenv(envRegion)); region != "" {
		cfg.AWS.Region = region
	}
	if raw := strings.TrimSpace(os.Getenv(envCapacity)); raw != "" {
		if capacity, err := strconv.Atoi(raw); err == nil && capacity > 0 {
			cfg.Relay.Capacity = capacity
		}
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is STORYSTREAM_CONFIG first, then cwd-local fallback paths.
// An empty path with no error means no file is configured anywhere.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("STORYSTREAM_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
