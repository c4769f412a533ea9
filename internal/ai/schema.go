package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/steveyegge/jobtitles/internal/types"
)

const schemaURL = "classification-response.json"

// responseSchema describes a valid classification response
func responseSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"classifications"},
		"properties": map[string]any{
			"classifications": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"id", "jobFunction", "jobSeniority", "confidence", "standardizedJobTitle"},
					"properties": map[string]any{
						"id":                   map[string]any{"type": "integer"},
						"jobFunction":          map[string]any{"type": "string", "enum": types.JobFunctions},
						"jobSeniority":         map[string]any{"type": "string", "enum": types.JobSeniorities},
						"confidence":           map[string]any{"type": "number", "minimum": 0, "maximum": 1},
						"standardizedJobTitle": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// compileResponseSchema compiles responseSchema once per classifier
func compileResponseSchema() (*jsonschema.Schema, error) {
	b, err := json.Marshal(responseSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
