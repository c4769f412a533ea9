// Package progress turns store counts and call counters into status snapshots
// with throughput, ETA, and projected cost.
package progress

import (
	"sync"
	"time"

	"github.com/steveyegge/jobtitles/internal/logging"
	"github.com/steveyegge/jobtitles/internal/types"
)

const (
	// DefaultWindow is how far back the completion rate looks
	DefaultWindow = 60 * time.Second
	// DefaultEmitInterval is the minimum gap between emitted snapshots
	DefaultEmitInterval = 500 * time.Millisecond
	// minRateSpan is the shortest history span a rate is computed from
	minRateSpan = time.Second
)

// Calls holds the worker's call counters at one instant
type Calls struct {
	Total          int     `json:"total"`
	Successful     int     `json:"successful"`
	Failed         int     `json:"failed"`
	Mismatched     int     `json:"mismatched"`
	Billable       int     `json:"billable"`
	BillableTitles int     `json:"billable_titles"` // titles sent in billable calls
	Cost           float64 `json:"cost"`
	LastError      string  `json:"last_error,omitempty"`
}

// Snapshot is the display model for one moment of a run
type Snapshot struct {
	At            time.Time
	Counts        types.StatusCounts
	Calls         Calls
	Elapsed       time.Duration
	Rate          float64 // unique titles completed per second, 0 if unknown
	ETA           time.Duration
	ETAKnown      bool
	ProjectedCost float64
	Logs          []logging.Entry
	Done          bool
}

// HistoryEntry is one completion sample
type HistoryEntry struct {
	Timestamp time.Time
	Completed int
}

// Projector derives rate, ETA and projected cost from successive observations
type Projector struct {
	window    time.Duration
	history   []HistoryEntry
	startedAt time.Time
}

// NewProjector creates a projector with the default 60s window
func NewProjector() *Projector {
	return &Projector{window: DefaultWindow}
}

// History returns the retained samples, oldest first
func (p *Projector) History() []HistoryEntry {
	return append([]HistoryEntry(nil), p.history...)
}

// Observe records a sample and builds the snapshot for it
func (p *Projector) Observe(now time.Time, counts types.StatusCounts, calls Calls) Snapshot {
	if p.startedAt.IsZero() && counts.Unique.Processing > 0 {
		p.startedAt = now
	}

	p.history = append(p.history, HistoryEntry{Timestamp: now, Completed: counts.Unique.Completed})
	cutoff := now.Add(-p.window)
	drop := 0
	for drop < len(p.history) && p.history[drop].Timestamp.Before(cutoff) {
		drop++
	}
	p.history = p.history[drop:]

	snap := Snapshot{
		At:     now,
		Counts: counts,
		Calls:  calls,
	}
	if !p.startedAt.IsZero() {
		snap.Elapsed = now.Sub(p.startedAt)
	}

	remaining := counts.Unique.Remaining()
	snap.Rate = p.rate()
	switch {
	case remaining == 0:
		snap.ETA = 0
		snap.ETAKnown = true
	case snap.Rate > 0:
		snap.ETA = time.Duration(float64(remaining) / snap.Rate * float64(time.Second))
		snap.ETAKnown = true
	}

	snap.ProjectedCost = ProjectCost(calls.Cost, remaining, calls.BillableTitles)
	return snap
}

// rate is completions per second across the window, or 0 when the window is
// too short to say
func (p *Projector) rate() float64 {
	if len(p.history) < 2 {
		return 0
	}
	first, last := p.history[0], p.history[len(p.history)-1]
	span := last.Timestamp.Sub(first.Timestamp)
	if span <= minRateSpan {
		return 0
	}
	delta := last.Completed - first.Completed
	if delta <= 0 {
		return 0
	}
	return float64(delta) / span.Seconds()
}

// ProjectCost extrapolates spend to the remaining titles using the average
// cost per billed title so far. Returns 0 when nothing has been billed.
func ProjectCost(cost float64, remaining, billableTitles int) float64 {
	if billableTitles <= 0 {
		return 0
	}
	return cost + cost*float64(remaining)/float64(billableTitles)
}

// Debouncer limits how often snapshots are emitted
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewDebouncer creates a debouncer with the given minimum interval
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Allow reports whether an emission at now is permitted, and records it if so
func (d *Debouncer) Allow(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.last.IsZero() && now.Sub(d.last) < d.interval {
		return false
	}
	d.last = now
	return true
}
