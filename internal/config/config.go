// Package config provides configuration management for vibecode.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jxucoder/vibecode/pkg/llm"
	"github.com/jxucoder/vibecode/pkg/llm/anthropic"
	"github.com/jxucoder/vibecode/pkg/llm/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds everything needed to build a Responder and run the generator.
type Config struct {
	// Provider selects the model API: "openai" (default) or "anthropic".
	Provider string

	// API keys. Only the one for Provider is required.
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// BaseURL overrides the provider's API root. Empty means the default.
	BaseURL string

	// ReasoningEffort is sent with OpenAI requests. Default: "low".
	ReasoningEffort string

	// Timeout bounds a single model call. Default: 2 minutes.
	Timeout time.Duration

	// LogLevel is a zerolog level name. Default: "info".
	LogLevel string

	// Jobs bounds how many sites of one file are expanded at once. Default: 4.
	Jobs int
}

// Load creates a Config from the config file and environment variables.
// Values are resolved in order: environment variable > config file > default.
func Load() (*Config, error) {
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(FilePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", FilePath(), err)
	}

	cfg := &Config{
		Provider:        strings.ToLower(envOr("VIBECODE_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    os.Getenv(openai.EnvAPIKey),
		AnthropicAPIKey: os.Getenv(anthropic.EnvAPIKey),
		BaseURL:         os.Getenv("VIBECODE_BASE_URL"),
		ReasoningEffort: envOr("VIBECODE_REASONING_EFFORT", "low"),
		Timeout:         envOrDuration("VIBECODE_TIMEOUT", 2*time.Minute),
		LogLevel:        envOr("VIBECODE_LOG_LEVEL", "info"),
		Jobs:            envOrInt("VIBECODE_JOBS", 4),
	}
	return cfg, nil
}

// Validate checks that the selected provider is known and has a credential.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%s is required: %w", openai.EnvAPIKey, llm.ErrMissingCredential)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%s is required: %w", anthropic.EnvAPIKey, llm.ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderOpenAI, ProviderAnthropic)
	}
	return nil
}

// NewResponder validates the config and builds the provider client.
func (c *Config) NewResponder() (llm.Responder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Provider == ProviderAnthropic {
		return anthropic.New(c.AnthropicAPIKey,
			anthropic.WithBaseURL(c.BaseURL),
			anthropic.WithHTTPClient(httpClient(c.Timeout)),
		), nil
	}
	return openai.New(c.OpenAIAPIKey,
		openai.WithBaseURL(c.BaseURL),
		openai.WithReasoningEffort(c.ReasoningEffort),
		openai.WithHTTPClient(httpClient(c.Timeout)),
	), nil
}

// FilePath returns the config file location: $VIBECODE_CONFIG if set,
// otherwise ~/.vibecode/config.env.
func FilePath() string {
	if p := os.Getenv("VIBECODE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".vibecode", "config.env")
	}
	return filepath.Join(home, ".vibecode", "config.env")
}

// ReadFile returns the key=value pairs stored in the config file. A missing
// file yields an empty map.
func ReadFile() (map[string]string, error) {
	values, err := godotenv.Read(FilePath())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	return values, err
}

// WriteFile replaces the config file with values.
func WriteFile(values map[string]string) error {
	path := FilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	clean := make(map[string]string, len(values))
	for k, v := range values {
		if v != "" {
			clean[k] = v
		}
	}
	if err := godotenv.Write(clean, path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return os.Chmod(path, 0o600)
}

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &http.Client{Timeout: timeout}
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
