package ai

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/steveyegge/jobtitles/internal/types"
)

// Pricing is the per-million-token price list of a model, in USD
type Pricing struct {
	InputPerMillion      float64 `yaml:"input_per_million"`
	CacheReadPerMillion  float64 `yaml:"cache_read_per_million"`
	CacheWritePerMillion float64 `yaml:"cache_write_per_million"`
	OutputPerMillion     float64 `yaml:"output_per_million"`
}

// DefaultPricing is the Claude 3.5 Haiku price list
func DefaultPricing() Pricing {
	return Pricing{
		InputPerMillion:      0.80,
		CacheReadPerMillion:  0.08,
		CacheWritePerMillion: 1.00,
		OutputPerMillion:     4.00,
	}
}

// Validate rejects negative prices
func (p Pricing) Validate() error {
	if p.InputPerMillion < 0 || p.CacheReadPerMillion < 0 || p.CacheWritePerMillion < 0 || p.OutputPerMillion < 0 {
		return fmt.Errorf("token prices must be non-negative")
	}
	return nil
}

// Cost prices one call. Input tokens reported by the API already exclude
// tokens served from or written to the prompt cache.
func (p Pricing) Cost(u types.Usage) float64 {
	const million = 1_000_000.0
	return float64(u.InputTokens)/million*p.InputPerMillion +
		float64(u.CacheReadTokens)/million*p.CacheReadPerMillion +
		float64(u.CacheWriteTokens)/million*p.CacheWritePerMillion +
		float64(u.OutputTokens)/million*p.OutputPerMillion
}

func usageFrom(u anthropic.Usage) types.Usage {
	return types.Usage{
		InputTokens:      u.InputTokens,
		CacheReadTokens:  u.CacheReadInputTokens,
		CacheWriteTokens: u.CacheCreationInputTokens,
		OutputTokens:     u.OutputTokens,
	}
}
