package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parsedBatch struct {
	Classifications []struct {
		ID          int64  `json:"id"`
		JobFunction string `json:"jobFunction"`
	} `json:"classifications"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []int64
		wantErr string
	}{
		{
			name:    "plain json",
			input:   `{"classifications":[{"id":1,"jobFunction":"Sales"}]}`,
			wantIDs: []int64{1},
		},
		{
			name:    "json code fence",
			input:   "```json\n{\"classifications\":[{\"id\":2,\"jobFunction\":\"HR\"}]}\n```",
			wantIDs: []int64{2},
		},
		{
			name:    "bare code fence",
			input:   "```\n{\"classifications\":[{\"id\":3,\"jobFunction\":\"HR\"}]}\n```",
			wantIDs: []int64{3},
		},
		{
			name:    "trailing commas",
			input:   `{"classifications":[{"id":4,"jobFunction":"Legal",},],}`,
			wantIDs: []int64{4},
		},
		{
			name:    "surrounding prose",
			input:   "Sure! Here is the result:\n{\"classifications\":[{\"id\":5,\"jobFunction\":\"Product\"}]}\nLet me know.",
			wantIDs: []int64{5},
		},
		{
			name:    "slashes inside titles survive cleanup",
			input:   `{"classifications":[{"id":6,"jobFunction":"Sales // EMEA"},]}`,
			wantIDs: []int64{6},
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: "empty input",
		},
		{
			name:    "no json",
			input:   "I am unable to help with that.",
			wantErr: "all JSON parsing strategies failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse[parsedBatch](tt.input, ParseOptions{Context: "test", Logger: quietLogger()})

			if tt.wantErr != "" {
				assert.False(t, result.Success)
				assert.Contains(t, result.Error, tt.wantErr)
				assert.True(t, strings.HasPrefix(result.Error, "test: "))
				return
			}

			require.True(t, result.Success, result.Error)
			var ids []int64
			for _, c := range result.Data.Classifications {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestParseSizeLimit(t *testing.T) {
	result := Parse[parsedBatch](strings.Repeat("x", 20), ParseOptions{MaxInputSize: 10, Logger: quietLogger()})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "exceeds size limit")
}

func TestExtractJSONPrefersLeadingArray(t *testing.T) {
	assert.Equal(t, `[{"id": 1}, {"id": 2}]`, extractJSON(`[{"id": 1}, {"id": 2}]`))
	assert.Equal(t, `{"a": 1}`, extractJSON(`noise {"a": 1} noise`))
	assert.Equal(t, "", extractJSON("nothing here"))
}
