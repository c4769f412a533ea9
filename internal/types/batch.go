package types

import "time"

// BatchStatus classifies the outcome of one classification call
type BatchStatus string

const (
	// BatchSuccess means the response covered exactly the dispatched ids
	BatchSuccess BatchStatus = "success"
	// BatchMismatch means the model answered but the count or id set was wrong
	BatchMismatch BatchStatus = "mismatch"
	// BatchError means the call failed in transport, parsing or schema validation
	BatchError BatchStatus = "error"
)

// Billable reports whether a call with this outcome consumed tokens
func (s BatchStatus) Billable() bool {
	return s == BatchSuccess || s == BatchMismatch
}

// Usage holds token counts reported by the model provider
type Usage struct {
	InputTokens      int64 `json:"input_tokens"`
	CacheReadTokens  int64 `json:"cache_read_tokens"`
	CacheWriteTokens int64 `json:"cache_write_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
}

// Total returns all tokens consumed by the call
func (u Usage) Total() int64 {
	return u.InputTokens + u.CacheReadTokens + u.CacheWriteTokens + u.OutputTokens
}

// BatchResult is what the classification adapter returns for one batch.
// Err is set for BatchMismatch and BatchError.
type BatchResult struct {
	Classifications []Classification
	Cost            float64
	Usage           Usage
	Status          BatchStatus
	Err             error
	Duration        time.Duration
}

// ByID indexes the classifications by input id
func (r *BatchResult) ByID() map[int64]Classification {
	m := make(map[int64]Classification, len(r.Classifications))
	for _, c := range r.Classifications {
		m[c.ID] = c
	}
	return m
}
