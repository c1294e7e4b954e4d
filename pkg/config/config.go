package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Investigation InvestigationConfig `yaml:"investigation"`
	Queue         QueueConfig         `yaml:"queue"`
	Decomposer    DecomposerConfig    `yaml:"decomposer"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// InvestigationConfig contains control-loop configuration
type InvestigationConfig struct {
	MaxRefinements   int     `yaml:"max_refinements"`
	SignalThreshold  float64 `yaml:"signal_threshold"`
	NoveltyThreshold float64 `yaml:"novelty_threshold"`
	MaxConcurrency   int     `yaml:"max_concurrency"`
	EnableReflection bool    `yaml:"enable_reflection"`
	Timeout          string  `yaml:"timeout"`

	// Coverage targets the decision tree checks before synthesizing
	CoverageThresholds map[string]float64 `yaml:"coverage_thresholds,omitempty"`
}

// QueueConfig contains task queue configuration
type QueueConfig struct {
	RecencyDecayHours float64 `yaml:"recency_decay_hours"`
	RetryPenalty      float64 `yaml:"retry_penalty"`
	MaxRetries        int     `yaml:"max_retries"`
}

// DecomposerConfig selects and configures the objective decomposer
type DecomposerConfig struct {
	Provider string       `yaml:"provider"` // "rules", "ollama"
	Ollama   OllamaConfig `yaml:"ollama"`
}

// OllamaConfig contains Ollama-specific configuration
type OllamaConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// ObservabilityConfig contains observability configuration
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text"
	Output string `yaml:"output"` // "stdout", "file"
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	config.overrideFromEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads configuration from a file or returns default config
func LoadOrDefault(path string) *Config {
	config, err := Load(path)
	if err != nil {
		config = Default()
	}
	return config
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Investigation: InvestigationConfig{
			MaxRefinements:   5,
			SignalThreshold:  0.75,
			NoveltyThreshold: 0.2,
			MaxConcurrency:   4,
			EnableReflection: true,
			Timeout:          "5m",
			CoverageThresholds: map[string]float64{
				"source_diversity":    0.7,
				"geographic_coverage": 0.6,
			},
		},
		Queue: QueueConfig{
			RecencyDecayHours: 72,
			RetryPenalty:      0.2,
			MaxRetries:        3,
		},
		Decomposer: DecomposerConfig{
			Provider: "rules",
			Ollama: OllamaConfig{
				BaseURL:     "http://localhost:11434",
				Model:       "llama3.2",
				Temperature: 0.3,
				MaxTokens:   1000,
				Timeout:     "2m",
			},
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      true,
				Endpoint:     "localhost:4317",
				SamplingRate: 1.0,
				Insecure:     true,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Port:    2223,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
	}
}

// applyDefaults applies default values to missing fields
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Investigation.MaxRefinements == 0 {
		c.Investigation.MaxRefinements = defaults.Investigation.MaxRefinements
	}
	if c.Investigation.SignalThreshold == 0 {
		c.Investigation.SignalThreshold = defaults.Investigation.SignalThreshold
	}
	if c.Investigation.NoveltyThreshold == 0 {
		c.Investigation.NoveltyThreshold = defaults.Investigation.NoveltyThreshold
	}
	if c.Investigation.MaxConcurrency == 0 {
		c.Investigation.MaxConcurrency = defaults.Investigation.MaxConcurrency
	}
	if c.Investigation.Timeout == "" {
		c.Investigation.Timeout = defaults.Investigation.Timeout
	}
	if len(c.Investigation.CoverageThresholds) == 0 {
		c.Investigation.CoverageThresholds = defaults.Investigation.CoverageThresholds
	}

	if c.Queue.RecencyDecayHours == 0 {
		c.Queue.RecencyDecayHours = defaults.Queue.RecencyDecayHours
	}
	if c.Queue.RetryPenalty == 0 {
		c.Queue.RetryPenalty = defaults.Queue.RetryPenalty
	}
	if c.Queue.MaxRetries == 0 {
		c.Queue.MaxRetries = defaults.Queue.MaxRetries
	}

	if c.Decomposer.Provider == "" {
		c.Decomposer.Provider = defaults.Decomposer.Provider
	}
	if c.Decomposer.Ollama.BaseURL == "" {
		c.Decomposer.Ollama.BaseURL = defaults.Decomposer.Ollama.BaseURL
	}
	if c.Decomposer.Ollama.Model == "" {
		c.Decomposer.Ollama.Model = defaults.Decomposer.Ollama.Model
	}
	if c.Decomposer.Ollama.Timeout == "" {
		c.Decomposer.Ollama.Timeout = defaults.Decomposer.Ollama.Timeout
	}
}

// overrideFromEnv overrides configuration from environment variables
func (c *Config) overrideFromEnv() {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		c.Decomposer.Ollama.BaseURL = url
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.Decomposer.Ollama.Model = model
	}
	if provider := os.Getenv("INQUIRY_DECOMPOSER"); provider != "" {
		c.Decomposer.Provider = provider
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Observability.Tracing.Endpoint = endpoint
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Investigation.MaxRefinements < 1 {
		return fmt.Errorf("investigation max_refinements must be at least 1")
	}
	if c.Investigation.SignalThreshold <= 0 || c.Investigation.SignalThreshold > 1 {
		return fmt.Errorf("investigation signal_threshold must be in (0, 1]")
	}
	if c.Investigation.NoveltyThreshold < 0 || c.Investigation.NoveltyThreshold > 1 {
		return fmt.Errorf("investigation novelty_threshold must be in [0, 1]")
	}
	if c.Investigation.MaxConcurrency < 1 {
		return fmt.Errorf("investigation max_concurrency must be at least 1")
	}
	if _, err := time.ParseDuration(c.Investigation.Timeout); err != nil {
		return fmt.Errorf("invalid investigation timeout: %w", err)
	}

	switch c.Decomposer.Provider {
	case "rules", "ollama":
	default:
		return fmt.Errorf("unknown decomposer provider: %s", c.Decomposer.Provider)
	}
	if _, err := time.ParseDuration(c.Decomposer.Ollama.Timeout); err != nil {
		return fmt.Errorf("invalid ollama timeout: %w", err)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	env := os.Getenv("ENVIRONMENT")
	return strings.ToLower(env) == "production" || strings.ToLower(env) == "prod"
}
