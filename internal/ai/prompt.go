package ai

import (
	"fmt"
	"os"
	"strings"

	"github.com/steveyegge/jobtitles/internal/types"
)

// DefaultRulesFile is the optional file of extra classification rules
const DefaultRulesFile = "AI-RULES.md"

// LoadRules reads custom classification rules. A missing file is not an error.
func LoadRules(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// buildSystemPrompt renders the static instructions sent with every batch.
// It never varies within a run so the provider can cache it.
func buildSystemPrompt(rules string) string {
	var b strings.Builder

	b.WriteString("You are a job title classification expert. For each job title provided, extract: ")
	b.WriteString("ID (from input), Job Function (from enum), Job Seniority (from enum), ")
	b.WriteString("Confidence (0 to 1), and Standardized Job Title.\n\n")

	b.WriteString("The input is a JSON array of objects with \"id\" and \"title\" fields. ")
	b.WriteString("Return exactly one classification per input object, reusing its id unchanged.\n\n")

	b.WriteString("Allowed jobFunction values:\n")
	for _, f := range types.JobFunctions {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	b.WriteString("\nAllowed jobSeniority values:\n")
	for _, s := range types.JobSeniorities {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\nRespond with a single JSON object and nothing else, in this shape:\n")
	b.WriteString(`{"classifications":[{"id":1,"jobFunction":"Sales","jobSeniority":"Manager","confidence":0.9,"standardizedJobTitle":"Sales Manager"}]}`)
	b.WriteString("\n")

	if rules != "" {
		b.WriteString("\nAdditional rules:\n")
		b.WriteString(rules)
		b.WriteString("\n")
	}

	return b.String()
}
