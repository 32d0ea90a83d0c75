// Package config loads router configuration from YAML, an optional .env file
// and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentrouter/core"
)

// DefaultBusyMessage is returned to callers when a request fails.
const DefaultBusyMessage = "系统繁忙，请稍后重试"

// EnvPrefix prefixes environment overrides, e.g. AGENTROUTER_EMBED_DIM.
const EnvPrefix = "AGENTROUTER_"

// Config is the complete router configuration.
type Config struct {
	EmbedDim              int      `yaml:"embed_dim"`
	MemoryCapacity        int      `yaml:"memory_capacity"`
	MemoryTopK            int      `yaml:"memory_top_k"`
	PostgreSQLURI         string   `yaml:"postgresql_uri"`
	MaxAsyncConnections   int      `yaml:"max_async_connections"`
	MetricsInterval       Duration `yaml:"metrics_interval"`
	BusyMessage           string   `yaml:"busy_message"`
	DefaultAgent          string   `yaml:"default_agent"`
	MaxConcurrentRequests int      `yaml:"max_concurrent_requests"`

	LLM      LLMConfig      `yaml:"llm"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Forecast ForecastConfig `yaml:"forecast"`
	Log      LogConfig      `yaml:"log"`
}

// LLMConfig selects and tunes the chat model.
type LLMConfig struct {
	// Provider is one of openai, anthropic or mock.
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
}

// EmbedderConfig selects the embedding backend.
type EmbedderConfig struct {
	// Provider is one of openai, clip or hash.
	Provider string   `yaml:"provider"`
	Model    string   `yaml:"model"`
	BaseURL  string   `yaml:"base_url"`
	APIKey   string   `yaml:"api_key"`
	Timeout  Duration `yaml:"timeout"`
}

// ForecastConfig holds defaults for the forecast tool.
type ForecastConfig struct {
	Horizon int    `yaml:"horizon"`
	Window  int    `yaml:"window"`
	Method  string `yaml:"method"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that runs without external services.
func Default() *Config {
	return &Config{
		EmbedDim:            512,
		MemoryTopK:          5,
		MaxAsyncConnections: 10,
		MetricsInterval:     Duration(60 * time.Second),
		BusyMessage:         DefaultBusyMessage,
		DefaultAgent:        "marketing",
		LLM: LLMConfig{
			Provider:    "mock",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Embedder: EmbedderConfig{
			Provider: "hash",
			Timeout:  Duration(10 * time.Second),
		},
		Forecast: ForecastConfig{Horizon: 3, Window: 3, Method: "linear"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (optional, "" skips the file) over the defaults, loads a
// .env file from the working directory if present and applies environment
// overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from AGENTROUTER_* variables and the provider API
// key variables.
func (c *Config) ApplyEnv() error {
	ints := map[string]*int{
		"EMBED_DIM":               &c.EmbedDim,
		"MEMORY_CAPACITY":         &c.MemoryCapacity,
		"MEMORY_TOP_K":            &c.MemoryTopK,
		"MAX_ASYNC_CONNECTIONS":   &c.MaxAsyncConnections,
		"MAX_CONCURRENT_REQUESTS": &c.MaxConcurrentRequests,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	strs := map[string]*string{
		"POSTGRESQL_URI":    &c.PostgreSQLURI,
		"BUSY_MESSAGE":      &c.BusyMessage,
		"DEFAULT_AGENT":     &c.DefaultAgent,
		"LLM_PROVIDER":      &c.LLM.Provider,
		"LLM_MODEL":         &c.LLM.Model,
		"EMBEDDER_PROVIDER": &c.Embedder.Provider,
		"EMBEDDER_BASE_URL": &c.Embedder.BaseURL,
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("METRICS_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("env %sMETRICS_INTERVAL: %w", EnvPrefix, err)
		}
		c.MetricsInterval = Duration(d)
	}

	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if c.Embedder.APIKey == "" && c.Embedder.Provider == "openai" {
		c.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.EmbedDim <= 0:
		return fmt.Errorf("embed_dim must be positive, got %d", c.EmbedDim)
	case c.MemoryCapacity < 0:
		return fmt.Errorf("memory_capacity must not be negative, got %d", c.MemoryCapacity)
	case c.MaxAsyncConnections <= 0:
		return fmt.Errorf("max_async_connections must be positive, got %d", c.MaxAsyncConnections)
	case c.MaxConcurrentRequests < 0:
		return fmt.Errorf("max_concurrent_requests must not be negative, got %d", c.MaxConcurrentRequests)
	case c.MetricsInterval.Duration() <= 0:
		return fmt.Errorf("metrics_interval must be positive, got %s", c.MetricsInterval)
	case c.BusyMessage == "":
		return errors.New("busy_message must not be empty")
	}

	if _, ok := core.ParseAgentKind(c.DefaultAgent); !ok {
		return fmt.Errorf("unknown default_agent %q", c.DefaultAgent)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Embedder.Provider {
	case "openai", "hash":
	case "clip":
		if c.Embedder.BaseURL == "" {
			return errors.New("embedder.base_url is required for the clip provider")
		}
	default:
		return fmt.Errorf("unknown embedder provider %q", c.Embedder.Provider)
	}

	switch c.Forecast.Method {
	case "linear", "moving_average":
	default:
		return fmt.Errorf("unknown forecast method %q", c.Forecast.Method)
	}

	return nil
}

// Duration is a time.Duration that decodes from YAML strings like "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err == nil {
			*d = Duration(parsed)
			return nil
		}
	}

	// Bare integers are seconds
	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// String returns the string representation.
func (d Duration) String() string { return time.Duration(d).String() }
