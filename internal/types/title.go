package types

import (
	"fmt"
	"strings"
	"time"
)

// TitleStatus is the classification state of a canonical title
type TitleStatus string

const (
	StatusPending    TitleStatus = "pending"
	StatusProcessing TitleStatus = "processing"
	StatusCompleted  TitleStatus = "completed"
)

// AllStatuses lists every title status in lifecycle order
var AllStatuses = []TitleStatus{StatusPending, StatusProcessing, StatusCompleted}

// IsValid checks if the status value is valid
func (s TitleStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted:
		return true
	}
	return false
}

// ParseTitleStatus parses a status name (case-insensitive)
func ParseTitleStatus(value string) (TitleStatus, error) {
	s := TitleStatus(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid status %q (want pending, processing or completed)", value)
	}
	return s, nil
}

// RawJob is one ingested CSV row. CanonicalID is nil for rows whose title
// was blank or a placeholder; those rows are tracked but never classified.
type RawJob struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CanonicalID *int64 `json:"canonical_id,omitempty"`
}

// CanonicalTitle is the deduplicated, classifiable unit: one per distinct
// non-empty title string.
type CanonicalTitle struct {
	ID                int64       `json:"id"`
	Title             string      `json:"title"`
	Status            TitleStatus `json:"status"`
	JobFunction       string      `json:"job_function,omitempty"`
	JobSeniority      string      `json:"job_seniority,omitempty"`
	StandardizedTitle string      `json:"standardized_title,omitempty"`
	Confidence        *float64    `json:"confidence,omitempty"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Input converts the record to the shape sent to the classifier
func (c *CanonicalTitle) Input() TitleInput {
	return TitleInput{ID: c.ID, Title: c.Title}
}

// TitleInput is one element of a classification request
type TitleInput struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Classification is one element of a classification response
type Classification struct {
	ID                   int64   `json:"id"`
	JobFunction          string  `json:"jobFunction"`
	JobSeniority         string  `json:"jobSeniority"`
	Confidence           float64 `json:"confidence"`
	StandardizedJobTitle string  `json:"standardizedJobTitle"`
}
