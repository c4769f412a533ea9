package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/steveyegge/jobtitles/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt("")
	for _, f := range types.JobFunctions {
		assert.Contains(t, prompt, "- "+f+"\n")
	}
	for _, s := range types.JobSeniorities {
		assert.Contains(t, prompt, "- "+s+"\n")
	}
	assert.NotContains(t, prompt, "Additional rules")

	withRules := buildSystemPrompt("Never guess.")
	assert.Contains(t, withRules, "Additional rules:\nNever guess.")
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	rules, err := LoadRules(filepath.Join(dir, "missing.md"))
	require.NoError(t, err)
	assert.Empty(t, rules)

	path := filepath.Join(dir, DefaultRulesFile)
	require.NoError(t, os.WriteFile(path, []byte("\n  Prefer Sales for BDRs.\n"), 0644))
	rules, err = LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "Prefer Sales for BDRs.", rules)

	rules, err = LoadRules("")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestResponseSchemaCompiles(t *testing.T) {
	schema, err := compileResponseSchema()
	require.NoError(t, err)

	valid := map[string]any{
		"classifications": []any{
			map[string]any{"id": 1.0, "jobFunction": "HR", "jobSeniority": "Head of", "confidence": 0.0, "standardizedJobTitle": ""},
		},
	}
	assert.NoError(t, schema.Validate(valid))

	fractionalID := map[string]any{
		"classifications": []any{
			map[string]any{"id": 1.5, "jobFunction": "HR", "jobSeniority": "Head of", "confidence": 0.5, "standardizedJobTitle": ""},
		},
	}
	assert.Error(t, schema.Validate(fractionalID))
}
