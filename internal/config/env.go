package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables read by ApplyEnv
const (
	EnvAPIKey            = "ANTHROPIC_API_KEY"
	EnvDatabase          = "JOBTITLES_DB"
	EnvModel             = "JOBTITLES_MODEL"
	EnvLogLevel          = "JOBTITLES_LOG_LEVEL"
	EnvBatchSize         = "JOBTITLES_BATCH_SIZE"
	EnvRequestsPerMinute = "JOBTITLES_REQUESTS_PER_MINUTE"
	EnvMinWait           = "JOBTITLES_MIN_WAIT"
)

// ApplyEnv overlays environment variables onto the configuration
//
// Environment variables:
//   - ANTHROPIC_API_KEY: API key for the classification endpoint
//   - JOBTITLES_DB: database path (default: .jobtitles/jobtitles.db)
//   - JOBTITLES_MODEL: model name
//   - JOBTITLES_LOG_LEVEL: debug, info, warn or error
//   - JOBTITLES_BATCH_SIZE: titles per classification call
//   - JOBTITLES_REQUESTS_PER_MINUTE: throughput mode limit
//   - JOBTITLES_MIN_WAIT: spacing mode delay, e.g. "2s"
//
// Setting only one of the two pacing variables selects that mode.
// Returns an error if any variable has an invalid value.
func (c *Config) ApplyEnv() error {
	parseEnvString(EnvAPIKey, &c.AI.APIKey)
	parseEnvString(EnvDatabase, &c.Database.Path)
	parseEnvString(EnvModel, &c.AI.Model)
	parseEnvString(EnvLogLevel, &c.LogLevel)

	if err := parseEnvInt(EnvBatchSize, &c.Process.BatchSize); err != nil {
		return err
	}

	rpm := -1
	if err := parseEnvInt(EnvRequestsPerMinute, &rpm); err != nil {
		return err
	}
	wait := time.Duration(-1)
	if err := parseEnvDuration(EnvMinWait, &wait); err != nil {
		return err
	}
	switch {
	case rpm >= 0 && wait >= 0:
		c.Process.Rate.RequestsPerMinute = rpm
		c.Process.Rate.MinWaitBetweenBatches = wait
	case rpm >= 0:
		c.UseThroughput(rpm)
	case wait >= 0:
		c.UseSpacing(wait)
	}
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a duration from an environment variable. A bare
// number is taken as milliseconds.
func parseEnvDuration(key string, dest *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	if ms, err := strconv.Atoi(value); err == nil {
		*dest = time.Duration(ms) * time.Millisecond
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString copies a non-empty environment variable into dest
func parseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}
