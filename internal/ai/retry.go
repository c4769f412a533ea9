package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// RetryConfig holds retry configuration for API calls
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`        // Retries after the first attempt (default: 3)
	InitialBackoff    time.Duration `yaml:"initial_backoff"`    // Default: 1s
	MaxBackoff        time.Duration `yaml:"max_backoff"`        // Default: 30s
	BackoffMultiplier float64       `yaml:"backoff_multiplier"` // Default: 2.0
	Timeout           time.Duration `yaml:"timeout"`            // Per-attempt timeout (default: 120s)

	// Circuit breaker settings
	CircuitBreakerEnabled bool          `yaml:"circuit_breaker"`
	FailureThreshold      int           `yaml:"failure_threshold"` // Failures before opening (default: 5)
	SuccessThreshold      int           `yaml:"success_threshold"` // Half-open successes before closing (default: 2)
	OpenTimeout           time.Duration `yaml:"open_timeout"`      // Default: 30s
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            3,
		InitialBackoff:        1 * time.Second,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
		Timeout:               120 * time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           30 * time.Second,
	}
}

// Validate checks retry settings
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1, got %v", c.BackoffMultiplier)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.CircuitBreakerEnabled && (c.FailureThreshold <= 0 || c.SuccessThreshold <= 0) {
		return fmt.Errorf("circuit breaker thresholds must be positive")
	}
	return nil
}

// ErrorType classifies API failures for retry decisions
type ErrorType int

const (
	ErrorUnknown   ErrorType = iota
	ErrorTransient           // 5xx, timeouts, connection failures
	ErrorQuota               // 429 rate limiting
	ErrorInvalid             // other 4xx
	ErrorAuth                // 401/403
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTransient:
		return "TRANSIENT"
	case ErrorQuota:
		return "QUOTA"
	case ErrorInvalid:
		return "INVALID"
	case ErrorAuth:
		return "AUTH"
	default:
		return "UNKNOWN"
	}
}

// classifyError determines the error type and, for rate limiting, how long
// the server asked us to wait (0 if it did not say).
func classifyError(err error) (ErrorType, time.Duration) {
	if err == nil {
		return ErrorUnknown, 0
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ErrorQuota, retryAfter(apiErr)
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return ErrorAuth, 0
		case apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusRequestTimeout:
			return ErrorTransient, 0
		case apiErr.StatusCode >= 400:
			return ErrorInvalid, 0
		}
		return ErrorUnknown, 0
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTransient, 0
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorTransient, 0
	}

	return ErrorUnknown, 0
}

// retryAfter reads the Retry-After header (seconds) from a rate limit response
func retryAfter(apiErr *anthropic.Error) time.Duration {
	if apiErr.Response == nil {
		return 0
	}
	if v := apiErr.Response.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// isRetriableError determines if an error is worth another attempt
func isRetriableError(err error) bool {
	t, _ := classifyError(err)
	return t == ErrorTransient || t == ErrorQuota
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation, requests pass through
	CircuitOpen                         // Too many failures, fail fast
	CircuitHalfOpen                     // Probing for recovery
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a failing endpoint for a cool-down period
type CircuitBreaker struct {
	mu sync.Mutex

	state            CircuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	logger           *slog.Logger
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(failureThreshold, successThreshold int, openTimeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		logger:           logger,
	}
}

// Allow returns ErrCircuitOpen while the circuit is open and the cool-down has not elapsed
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return nil
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.openTimeout {
			cb.transition(CircuitHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.transition(CircuitClosed)
		}
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// Any failure while probing reopens immediately
		cb.transition(CircuitOpen)
	}
}

// GetMetrics returns the current state and counters
func (cb *CircuitBreaker) GetMetrics() (state CircuitState, failures, successes int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state, cb.failureCount, cb.successCount
}

// transition must be called with the lock held
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.successCount = 0
	if to == CircuitClosed {
		cb.failureCount = 0
	}
	cb.logger.Info("circuit breaker state transition",
		"from", from.String(), "to", to.String(), "failures", cb.failureCount)
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retriable
// error, or exhausts MaxRetries. Each attempt gets its own timeout.
func (c *Classifier) retryWithBackoff(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error
	backoff := c.retry.InitialBackoff

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.breaker != nil {
			if err := c.breaker.Allow(); err != nil {
				state, failures, _ := c.breaker.GetMetrics()
				c.logger.Warn("request blocked by circuit breaker",
					"operation", operation, "state", state.String(), "failures", failures)
				return fmt.Errorf("%s failed: %w", operation, err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.retry.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			if attempt > 0 {
				c.logger.Info("request succeeded after retries", "operation", operation, "retries", attempt)
			}
			return nil
		}

		lastErr = err
		errType, wait := classifyError(err)
		retriable := errType == ErrorTransient || errType == ErrorQuota

		// Client errors say nothing about endpoint health
		if c.breaker != nil && retriable {
			c.breaker.RecordFailure()
		}

		if !retriable {
			c.logger.Warn("request failed with non-retriable error",
				"operation", operation, "type", errType.String(), "error", err)
			return err
		}

		if attempt == c.retry.MaxRetries {
			break
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		}

		if wait < backoff {
			wait = backoff
		}
		if wait > c.retry.MaxBackoff {
			wait = c.retry.MaxBackoff
		}

		c.logger.Warn("request failed, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", c.retry.MaxRetries+1,
			"type", errType.String(),
			"wait", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			backoff = time.Duration(float64(backoff) * c.retry.BackoffMultiplier)
			if backoff > c.retry.MaxBackoff {
				backoff = c.retry.MaxBackoff
			}
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s failed: context canceled during backoff: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, c.retry.MaxRetries+1, lastErr)
}
