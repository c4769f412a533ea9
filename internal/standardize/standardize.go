// Package standardize derives a normalized job title from the seniority and
// function labels returned by the classifier.
package standardize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// executiveSeniorities collapse to "Executive Decision Maker" regardless of function
var executiveSeniorities = map[string]bool{
	"founder":               true,
	"managing director":     true,
	"entrepreneur":          true,
	"chairman of the board": true,
	"ceo":                   true,
}

// Title returns the standardized title for a classification. sourceTitle is
// the original raw title and may be empty. Matching is case-insensitive.
// An empty seniority or function yields "".
func Title(seniority, function, sourceTitle string) string {
	s := strings.ToLower(strings.TrimSpace(seniority))
	f := strings.ToLower(strings.TrimSpace(function))
	src := strings.ToLower(strings.TrimSpace(sourceTitle))

	if s == "" || f == "" {
		return ""
	}

	if src == "toimitusjohtaja" {
		return "Chief Executive Officer"
	}
	if executiveSeniorities[s] {
		return "Executive Decision Maker"
	}
	if src == "executive decision maker" {
		return "Executive Decision Maker"
	}
	switch f {
	case "other commercial":
		return "Other Commercial"
	case "other":
		return "Other"
	}

	fn := capitalize(strings.TrimSpace(function))
	switch s {
	case "chief":
		return "Chief " + fn + " Officer"
	case "president":
		return "President of " + fn
	case "vice president":
		return "Vice President of " + fn
	case "director":
		return fn + " Director"
	case "head of":
		return "Head of " + fn
	case "manager":
		return fn + " Manager"
	case "lead":
		return fn + " Lead"
	}
	return fn + " Other"
}

// capitalize upper-cases the first letter and keeps the label's own casing
// for the rest ("HR" stays "HR")
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
