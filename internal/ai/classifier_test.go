package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/steveyegge/jobtitles/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUsage = map[string]any{
	"input_tokens":                1000,
	"output_tokens":               500,
	"cache_read_input_tokens":     2000,
	"cache_creation_input_tokens": 0,
}

// messageBody renders a Messages API response whose text content is text
func messageBody(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultModel,
		"content":       []map[string]any{{"type": "text", "text": text}},
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         testUsage,
	})
	return body
}

func classificationsJSON(ids ...int64) string {
	var items []string
	for _, id := range ids {
		items = append(items, fmt.Sprintf(
			`{"id":%d,"jobFunction":"Sales","jobSeniority":"Manager","confidence":0.9,"standardizedJobTitle":"Sales Manager"}`, id))
	}
	return `{"classifications":[` + strings.Join(items, ",") + `]}`
}

func inputs(ids ...int64) []types.TitleInput {
	batch := make([]types.TitleInput, len(ids))
	for i, id := range ids {
		batch[i] = types.TitleInput{ID: id, Title: fmt.Sprintf("Title %d", id)}
	}
	return batch
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:        maxRetries,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
		Timeout:           5 * time.Second,
	}
}

func newTestClassifier(t *testing.T, retry RetryConfig, handler http.HandlerFunc) *Classifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(Config{
		APIKey: "test-key",
		Retry:  retry,
		Rules:  "Treat 'toimitusjohtaja' as CEO.",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, option.WithBaseURL(server.URL))
	require.NoError(t, err)
	return c
}

// respondWith serves the same text for every request
func respondWith(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(messageBody(text))
	}
}

func TestClassifySuccess(t *testing.T) {
	c := newTestClassifier(t, fastRetry(0), respondWith(classificationsJSON(1, 2, 3)))

	result := c.Classify(context.Background(), inputs(1, 2, 3))

	require.NoError(t, result.Err)
	assert.Equal(t, types.BatchSuccess, result.Status)
	assert.Len(t, result.Classifications, 3)
	assert.Equal(t, "Sales", result.ByID()[2].JobFunction)
	assert.Equal(t, types.Usage{InputTokens: 1000, CacheReadTokens: 2000, OutputTokens: 500}, result.Usage)
	// 1000*0.80 + 2000*0.08 + 500*4.00 per million
	assert.InDelta(t, 0.00296, result.Cost, 1e-12)
}

func TestClassifyToleratesCodeFences(t *testing.T) {
	text := "Here you go:\n```json\n" + classificationsJSON(7) + "\n```"
	c := newTestClassifier(t, fastRetry(0), respondWith(text))

	result := c.Classify(context.Background(), inputs(7))

	assert.Equal(t, types.BatchSuccess, result.Status)
	require.Len(t, result.Classifications, 1)
	assert.Equal(t, int64(7), result.Classifications[0].ID)
}

func TestClassifySendsCachedSystemPromptAndBatch(t *testing.T) {
	var captured map[string]any
	c := newTestClassifier(t, fastRetry(0), func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(messageBody(classificationsJSON(1, 2)))
	})

	result := c.Classify(context.Background(), inputs(1, 2))
	require.Equal(t, types.BatchSuccess, result.Status)
	require.NotNil(t, captured)

	assert.Equal(t, DefaultModel, captured["model"])

	system, ok := captured["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	block := system[0].(map[string]any)
	assert.Contains(t, block["text"], "job title classification expert")
	assert.Contains(t, block["text"], "Treat 'toimitusjohtaja' as CEO.")
	assert.Equal(t, map[string]any{"type": "ephemeral"}, block["cache_control"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)

	var sent []types.TitleInput
	require.NoError(t, json.Unmarshal([]byte(text), &sent))
	assert.Equal(t, inputs(1, 2), sent)
}

func TestClassifyMismatch(t *testing.T) {
	tests := []struct {
		name     string
		sent     []int64
		returned []int64
		wantErr  error
	}{
		{
			name:     "count",
			sent:     []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			returned: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9},
			wantErr:  ErrCountMismatch,
		},
		{
			name:     "id set",
			sent:     []int64{1, 2, 3},
			returned: []int64{1, 2, 4},
			wantErr:  ErrIDMismatch,
		},
		{
			name:     "duplicate id",
			sent:     []int64{1, 2, 3},
			returned: []int64{1, 1, 2},
			wantErr:  ErrIDMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t, fastRetry(0), respondWith(classificationsJSON(tt.returned...)))

			result := c.Classify(context.Background(), inputs(tt.sent...))

			assert.Equal(t, types.BatchMismatch, result.Status)
			assert.ErrorIs(t, result.Err, tt.wantErr)
			// Mismatched calls are billed
			assert.Greater(t, result.Cost, 0.0)
			assert.True(t, result.Status.Billable())
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "not json", text: "I cannot classify these titles."},
		{name: "missing classifications", text: `{"results":[]}`},
		{name: "unknown function", text: `{"classifications":[{"id":1,"jobFunction":"Wizardry","jobSeniority":"Manager","confidence":0.9,"standardizedJobTitle":"x"}]}`},
		{name: "unknown seniority", text: `{"classifications":[{"id":1,"jobFunction":"Sales","jobSeniority":"Overlord","confidence":0.9,"standardizedJobTitle":"x"}]}`},
		{name: "confidence above one", text: `{"classifications":[{"id":1,"jobFunction":"Sales","jobSeniority":"Manager","confidence":1.5,"standardizedJobTitle":"x"}]}`},
		{name: "missing field", text: `{"classifications":[{"id":1,"jobFunction":"Sales","confidence":0.5,"standardizedJobTitle":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t, fastRetry(0), respondWith(tt.text))

			result := c.Classify(context.Background(), inputs(1))

			assert.Equal(t, types.BatchError, result.Status)
			assert.Error(t, result.Err)
			assert.Zero(t, result.Cost)
			assert.Empty(t, result.Classifications)
		})
	}
}

func TestClassifyDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClassifier(t, fastRetry(3), func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	})

	result := c.Classify(context.Background(), inputs(1))

	assert.Equal(t, types.BatchError, result.Status)
	assert.Zero(t, result.Cost)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClassifyRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClassifier(t, fastRetry(2), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
			return
		}
		_, _ = w.Write(messageBody(classificationsJSON(1)))
	})

	result := c.Classify(context.Background(), inputs(1))

	assert.Equal(t, types.BatchSuccess, result.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClassifyExhaustsRetries(t *testing.T) {
	var calls int32
	c := newTestClassifier(t, fastRetry(2), func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	})

	result := c.Classify(context.Background(), inputs(1))

	assert.Equal(t, types.BatchError, result.Status)
	assert.Contains(t, result.Err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := New(Config{})
	assert.Error(t, err)

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
}

func TestValidateCoverage(t *testing.T) {
	cls := func(ids ...int64) []types.Classification {
		out := make([]types.Classification, len(ids))
		for i, id := range ids {
			out[i] = types.Classification{ID: id}
		}
		return out
	}

	assert.NoError(t, validateCoverage(inputs(3, 1, 2), cls(1, 2, 3)))
	assert.ErrorIs(t, validateCoverage(inputs(1, 2), cls(1)), ErrCountMismatch)
	assert.ErrorIs(t, validateCoverage(inputs(1, 2), cls(1, 3)), ErrIDMismatch)
	assert.ErrorIs(t, validateCoverage(inputs(1, 2), cls(2, 2)), ErrIDMismatch)
}

func TestPricingCost(t *testing.T) {
	p := DefaultPricing()

	assert.Zero(t, p.Cost(types.Usage{}))
	assert.InDelta(t, 0.80, p.Cost(types.Usage{InputTokens: 1_000_000}), 1e-12)
	assert.InDelta(t, 1.00, p.Cost(types.Usage{CacheWriteTokens: 1_000_000}), 1e-12)
	assert.InDelta(t, 4.08, p.Cost(types.Usage{CacheReadTokens: 1_000_000, OutputTokens: 1_000_000}), 1e-12)

	assert.NoError(t, p.Validate())
	assert.Error(t, Pricing{OutputPerMillion: -1}.Validate())
}
