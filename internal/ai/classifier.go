package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/steveyegge/jobtitles/internal/types"
)

// DefaultModel is used when no model is configured
const DefaultModel = "claude-3-5-haiku-20241022"

// DefaultMaxTokens bounds the response size of one batch
const DefaultMaxTokens = 8192

// ErrCountMismatch and ErrIDMismatch describe responses that parsed but do
// not cover the dispatched batch exactly
var (
	ErrCountMismatch = errors.New("classification count mismatch")
	ErrIDMismatch    = errors.New("classification id mismatch")
)

// Config configures a Classifier
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string // empty = Anthropic default
	Rules     string // extra instructions appended to the system prompt
	Pricing   Pricing
	Retry     RetryConfig
	Logger    *slog.Logger
}

// Classifier sends batches of titles to the model and checks what comes back
type Classifier struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	system    string
	schema    *jsonschema.Schema
	pricing   Pricing
	retry     RetryConfig
	breaker   *CircuitBreaker
	logger    *slog.Logger
}

// classificationResponse is the body the model is asked to produce
type classificationResponse struct {
	Classifications []types.Classification `json:"classifications"`
}

// New creates a Classifier. Extra request options are applied after the
// config-derived ones (tests use this to point at a fake server).
func New(cfg Config, opts ...option.RequestOption) (*Classifier, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	if err := retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}

	pricing := cfg.Pricing
	if pricing == (Pricing{}) {
		pricing = DefaultPricing()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schema, err := compileResponseSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build response schema: %w", err)
	}

	// Retries are handled by retryWithBackoff so they share the circuit breaker
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)
	client := anthropic.NewClient(reqOpts...)

	var breaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		breaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout, logger)
	}

	return &Classifier{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		system:    buildSystemPrompt(cfg.Rules),
		schema:    schema,
		pricing:   pricing,
		retry:     retry,
		breaker:   breaker,
		logger:    logger,
	}, nil
}

// Model returns the model name requests are sent to
func (c *Classifier) Model() string {
	return c.model
}

// Classify sends one batch and returns its outcome. It never returns nil.
// Transport, parse and schema failures yield BatchError with zero cost;
// responses whose count or id set differ from the batch yield BatchMismatch
// and are still billed.
func (c *Classifier) Classify(ctx context.Context, batch []types.TitleInput) *types.BatchResult {
	start := time.Now()
	result := c.classify(ctx, batch)
	result.Duration = time.Since(start)

	c.logger.Debug("batch classified",
		"size", len(batch),
		"status", string(result.Status),
		"cost", result.Cost,
		"input_tokens", result.Usage.InputTokens,
		"cache_read_tokens", result.Usage.CacheReadTokens,
		"output_tokens", result.Usage.OutputTokens,
		"duration", result.Duration)

	return result
}

func (c *Classifier) classify(ctx context.Context, batch []types.TitleInput) *types.BatchResult {
	payload, err := json.Marshal(batch)
	if err != nil {
		return errorResult(fmt.Errorf("failed to encode batch: %w", err))
	}

	var response *anthropic.Message
	err = c.retryWithBackoff(ctx, "classification", func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:       anthropic.Model(c.model),
			MaxTokens:   c.maxTokens,
			Temperature: anthropic.Float(0),
			System: []anthropic.TextBlockParam{{
				Text:         c.system,
				CacheControl: anthropic.NewCacheControlEphemeralParam(),
			}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(string(payload))),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return errorResult(fmt.Errorf("anthropic API call failed: %w", err))
	}

	usage := usageFrom(response.Usage)

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	raw := Parse[any](text, ParseOptions{Context: "classification response", Logger: c.logger})
	if !raw.Success {
		r := errorResult(errors.New(raw.Error))
		r.Usage = usage
		return r
	}

	if err := c.schema.Validate(raw.Data); err != nil {
		r := errorResult(fmt.Errorf("classification response does not match schema: %w", err))
		r.Usage = usage
		return r
	}

	parsed := Parse[classificationResponse](text, ParseOptions{Context: "classification response", Logger: c.logger})
	if !parsed.Success {
		r := errorResult(errors.New(parsed.Error))
		r.Usage = usage
		return r
	}

	result := &types.BatchResult{
		Classifications: parsed.Data.Classifications,
		Cost:            c.pricing.Cost(usage),
		Usage:           usage,
		Status:          types.BatchSuccess,
	}

	if err := validateCoverage(batch, result.Classifications); err != nil {
		result.Status = types.BatchMismatch
		result.Err = err
	}

	return result
}

// validateCoverage checks that the response has one entry per input and
// that the id sets are equal
func validateCoverage(batch []types.TitleInput, classifications []types.Classification) error {
	if len(classifications) != len(batch) {
		return fmt.Errorf("%w: sent %d titles, got %d classifications", ErrCountMismatch, len(batch), len(classifications))
	}

	want := make(map[int64]struct{}, len(batch))
	for _, in := range batch {
		want[in.ID] = struct{}{}
	}
	got := make(map[int64]struct{}, len(classifications))
	for _, c := range classifications {
		got[c.ID] = struct{}{}
	}

	if len(want) != len(got) {
		return fmt.Errorf("%w: duplicate ids in response", ErrIDMismatch)
	}
	for id := range want {
		if _, ok := got[id]; !ok {
			return fmt.Errorf("%w: id %d missing from response", ErrIDMismatch, id)
		}
	}
	return nil
}

func errorResult(err error) *types.BatchResult {
	return &types.BatchResult{Status: types.BatchError, Err: err}
}
