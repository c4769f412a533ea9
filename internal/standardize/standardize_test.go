package standardize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name      string
		seniority string
		function  string
		source    string
		want      string
	}{
		{"chief finance", "Chief", "Finance", "", "Chief Finance Officer"},
		{"sales manager", "Manager", "Sales", "", "Sales Manager"},
		{"ceo any function", "CEO", "Marketing", "", "Executive Decision Maker"},
		{"founder", "Founder", "Software Development", "", "Executive Decision Maker"},
		{"other other", "Other", "Other", "", "Other"},
		{"other commercial ignores seniority", "Director", "Other Commercial", "", "Other Commercial"},
		{"other commercial with chief", "Chief", "Other Commercial", "", "Other Commercial"},
		{"toimitusjohtaja override", "Manager", "Sales", "Toimitusjohtaja", "Chief Executive Officer"},
		{"toimitusjohtaja beats ceo", "CEO", "Other", "toimitusjohtaja", "Chief Executive Officer"},
		{"source executive decision maker", "Lead", "HR", "Executive Decision Maker", "Executive Decision Maker"},
		{"president", "President", "Operations", "", "President of Operations"},
		{"vice president", "Vice President", "Sales", "", "Vice President of Sales"},
		{"director", "Director", "Legal", "", "Legal Director"},
		{"head of", "Head of", "HR", "", "Head of HR"},
		{"lead", "Lead", "Engineering", "", "Engineering Lead"},
		{"fallback partner", "Partner", "Finance", "", "Finance Other"},
		{"lowercase function keeps rest", "Manager", "customer success", "", "Customer success Manager"},
		{"acronym function keeps its casing", "Manager", "HR", "", "HR Manager"},
		{"missing seniority", "", "Finance", "", ""},
		{"missing function", "Chief", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.seniority, tt.function, tt.source))
		})
	}
}
