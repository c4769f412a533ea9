package types

import (
	"fmt"
	"strings"
	"time"
)

// ExportFilter narrows the rows written by an export
type ExportFilter struct {
	Status        TitleStatus // empty = any status, including skipped rows
	MinConfidence *float64    // nil = no threshold
}

// ExportRow is one output row: a raw record joined to its canonical title
type ExportRow struct {
	ID                string
	JobTitle          string
	JobFunction       string
	JobSeniority      string
	StandardizedTitle string
	Confidence        *float64
}

// ExportHeader is the column order of exported files
var ExportHeader = []string{"id", "job_title", "job_function", "job_seniority", "standardized_job_title", "confidence"}

// Record renders the row in ExportHeader order
func (r ExportRow) Record() []string {
	confidence := ""
	if r.Confidence != nil {
		confidence = fmt.Sprintf("%g", *r.Confidence)
	}
	return []string{r.ID, r.JobTitle, r.JobFunction, r.JobSeniority, r.StandardizedTitle, confidence}
}

// ResetKind selects what a reset clears
type ResetKind string

const (
	// ResetFull deletes every raw and canonical record
	ResetFull ResetKind = "full"
	// ResetProcessed returns every canonical title to pending and clears results
	ResetProcessed ResetKind = "processed"
)

// ParseResetKind parses a reset type name
func ParseResetKind(value string) (ResetKind, error) {
	switch k := ResetKind(strings.ToLower(strings.TrimSpace(value))); k {
	case ResetFull, ResetProcessed:
		return k, nil
	}
	return "", fmt.Errorf("invalid reset type %q (want full or processed)", value)
}

// Run is the persisted summary of one processing run
type Run struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	BatchSize       int        `json:"batch_size"`
	RateMode        string     `json:"rate_mode"`
	TotalCalls      int        `json:"total_calls"`
	SuccessfulCalls int        `json:"successful_calls"`
	FailedCalls     int        `json:"failed_calls"`
	MismatchCalls   int        `json:"mismatch_calls"`
	TitlesCompleted int        `json:"titles_completed"`
	Cost            float64    `json:"cost"`
	Error           string     `json:"error,omitempty"`
}
