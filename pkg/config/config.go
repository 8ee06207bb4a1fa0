package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for an unusable configuration.
var ErrInvalid = errors.New("invalid config")

// Cache backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Provider types.
const (
	ProviderEcho   = "echo"
	ProviderOpenAI = "openai"
)

// Config holds all convo configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"`
	Context   ContextConfig   `yaml:"context"`
	Inference InferenceConfig `yaml:"inference"`
	Cache     CacheConfig     `yaml:"cache"`
	Provider  ProviderConfig  `yaml:"provider"`
}

// ContextConfig bounds the conversation store.
type ContextConfig struct {
	MaxContextLength       int `yaml:"max_context_length"`
	MaxTurns               int `yaml:"max_turns"`
	SummarizationThreshold int `yaml:"summarization_threshold"`
}

// InferenceConfig holds generation defaults. Everything except MaxLength and
// Temperature is passed through to the model untouched.
type InferenceConfig struct {
	Temperature        float64 `yaml:"temperature"`
	TopP               float64 `yaml:"top_p"`
	TopK               int     `yaml:"top_k"`
	MaxLength          int     `yaml:"max_length"`
	RepetitionPenalty  float64 `yaml:"repetition_penalty"`
	NumReturnSequences int     `yaml:"num_return_sequences"`
	DoSample           bool    `yaml:"do_sample"`
}

// CacheConfig controls the response cache.
// MaxEntries <= 0 keeps the cache unbounded.
type CacheConfig struct {
	Backend    string `yaml:"backend"`
	MaxEntries int    `yaml:"max_entries"`
	DSN        string `yaml:"dsn"`
}

// ProviderConfig defines the upstream model.
// Type is "echo" (default) or "openai". Fallbacks are tried in order when
// this provider fails with a transport error or a 5xx status.
type ProviderConfig struct {
	Name      string           `yaml:"name"`
	Type      string           `yaml:"type"`
	URL       string           `yaml:"url"`
	APIKey    string           `yaml:"api_key"`
	Model     string           `yaml:"model"`
	Timeout   time.Duration    `yaml:"timeout"`
	Fallbacks []ProviderConfig `yaml:"fallbacks"`
}

// DefaultContext returns the stock conversation limits.
func DefaultContext() ContextConfig {
	return ContextConfig{
		MaxContextLength:       4096,
		MaxTurns:               50,
		SummarizationThreshold: 40,
	}
}

// DefaultInference returns the stock generation defaults.
func DefaultInference() InferenceConfig {
	return InferenceConfig{
		Temperature:        0.7,
		TopP:               0.9,
		TopK:               50,
		MaxLength:          512,
		RepetitionPenalty:  1.0,
		NumReturnSequences: 1,
		DoSample:           true,
	}
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Context:   DefaultContext(),
		Inference: DefaultInference(),
		Cache: CacheConfig{
			Backend: BackendMemory,
			DSN:     ":memory:",
		},
		Provider: ProviderConfig{
			Type:    ProviderEcho,
			Timeout: time.Minute,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Context.MaxTurns <= 0 {
		return fmt.Errorf("%w: context.max_turns must be positive, got %d", ErrInvalid, c.Context.MaxTurns)
	}
	if c.Context.SummarizationThreshold > c.Context.MaxTurns {
		return fmt.Errorf("%w: context.summarization_threshold (%d) exceeds max_turns (%d)",
			ErrInvalid, c.Context.SummarizationThreshold, c.Context.MaxTurns)
	}
	switch c.Cache.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalid, c.Cache.Backend)
	}
	return validateProvider("provider", c.Provider)
}

func validateProvider(field string, p ProviderConfig) error {
	switch p.Type {
	case "", ProviderEcho:
	case ProviderOpenAI:
		if p.URL == "" {
			return fmt.Errorf("%w: %s.url is required for openai", ErrInvalid, field)
		}
	default:
		return fmt.Errorf("%w: unknown %s type %q", ErrInvalid, field, p.Type)
	}
	for i, fb := range p.Fallbacks {
		if err := validateProvider(fmt.Sprintf("%s.fallbacks[%d]", field, i), fb); err != nil {
			return err
		}
	}
	return nil
}
