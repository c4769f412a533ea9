// Package config resolves jobtitles settings. Sources are applied in order,
// later ones winning: built-in defaults, the YAML config file, the .env file
// and process environment, then command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/jobtitles/internal/ai"
	"github.com/steveyegge/jobtitles/internal/ingest"
	"github.com/steveyegge/jobtitles/internal/logging"
	"github.com/steveyegge/jobtitles/internal/processor"
	"github.com/steveyegge/jobtitles/internal/ratelimit"
	"github.com/steveyegge/jobtitles/internal/storage"
)

const (
	// DefaultPath is the config file read when none is named
	DefaultPath = ".jobtitles/config.yaml"
	// DefaultRequestsPerMinute is the throughput limit used when neither
	// pacing mode is configured
	DefaultRequestsPerMinute = 30
)

// ErrMissingAPIKey is returned when classification is requested without a key
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY is not set")

// Config is the resolved configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	LogLevel string         `yaml:"log_level"`
	AI       AIConfig       `yaml:"ai"`
	Process  ProcessConfig  `yaml:"process"`
	Ingest   ingest.Options `yaml:"ingest"`
}

// DatabaseConfig locates the SQLite store
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AIConfig configures the classification client
type AIConfig struct {
	// APIKey comes from the environment only
	APIKey    string         `yaml:"-"`
	Model     string         `yaml:"model"`
	MaxTokens int64          `yaml:"max_tokens"`
	BaseURL   string         `yaml:"base_url"`
	RulesFile string         `yaml:"rules_file"`
	Pricing   ai.Pricing     `yaml:"pricing"`
	Retry     ai.RetryConfig `yaml:"retry"`
}

// ProcessConfig holds the run parameters for process
type ProcessConfig struct {
	BatchSize              int              `yaml:"batch_size"`
	Rate                   ratelimit.Config `yaml:",inline"`
	MaxConsecutiveFailures int              `yaml:"max_consecutive_failures"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: storage.DefaultPath},
		LogLevel: "info",
		AI: AIConfig{
			Model:     ai.DefaultModel,
			MaxTokens: ai.DefaultMaxTokens,
			RulesFile: ai.DefaultRulesFile,
			Pricing:   ai.DefaultPricing(),
			Retry:     ai.DefaultRetryConfig(),
		},
		Process: ProcessConfig{
			BatchSize:              processor.DefaultBatchSize,
			Rate:                   ratelimit.Config{RequestsPerMinute: DefaultRequestsPerMinute},
			MaxConsecutiveFailures: processor.DefaultMaxConsecutiveFailures,
		},
		Ingest: ingest.DefaultOptions(),
	}
}

// Load builds the configuration from defaults, the file at path, .env and
// the environment. A missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || required {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rateOverrides reports which pacing keys a source set explicitly
type rateOverrides struct {
	Process struct {
		RequestsPerMinute     *int           `yaml:"requests_per_minute"`
		MinWaitBetweenBatches *time.Duration `yaml:"min_wait_between_batches"`
	} `yaml:"process"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	var set rateOverrides
	if err := yaml.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if set.Process.MinWaitBetweenBatches != nil && set.Process.RequestsPerMinute == nil {
		c.UseSpacing(*set.Process.MinWaitBetweenBatches)
	}
	return nil
}

// UseSpacing selects spacing mode, dropping the default throughput limit
func (c *Config) UseSpacing(wait time.Duration) {
	c.Process.Rate.MinWaitBetweenBatches = wait
	if wait > 0 {
		c.Process.Rate.RequestsPerMinute = 0
	}
}

// UseThroughput selects throughput mode, dropping any configured spacing
func (c *Config) UseThroughput(rpm int) {
	c.Process.Rate.RequestsPerMinute = rpm
	if rpm > 0 {
		c.Process.Rate.MinWaitBetweenBatches = 0
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model must not be empty")
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("ai.max_tokens must be positive (got %d)", c.AI.MaxTokens)
	}
	if err := c.AI.Pricing.Validate(); err != nil {
		return fmt.Errorf("ai.pricing: %w", err)
	}
	if err := c.AI.Retry.Validate(); err != nil {
		return fmt.Errorf("ai.retry: %w", err)
	}
	if err := c.ProcessParams().Validate(); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

// RequireAPIKey fails when no Anthropic key is configured
func (c *Config) RequireAPIKey() error {
	if c.AI.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ProcessParams converts the process section to worker parameters
func (c *Config) ProcessParams() processor.Params {
	return processor.Params{
		BatchSize:              c.Process.BatchSize,
		Rate:                   c.Process.Rate,
		MaxConsecutiveFailures: c.Process.MaxConsecutiveFailures,
	}
}

// StorageConfig returns the store settings
func (c *Config) StorageConfig() *storage.Config {
	return &storage.Config{Path: c.Database.Path}
}

// ClassifierConfig returns the classification client settings. rules is
// the contents of the rules file.
func (c *Config) ClassifierConfig(rules string) ai.Config {
	return ai.Config{
		APIKey:    c.AI.APIKey,
		Model:     c.AI.Model,
		MaxTokens: c.AI.MaxTokens,
		BaseURL:   c.AI.BaseURL,
		Rules:     rules,
		Pricing:   c.AI.Pricing,
		Retry:     c.AI.Retry,
	}
}
