package processor

import (
	"sync"

	"github.com/steveyegge/jobtitles/internal/progress"
	"github.com/steveyegge/jobtitles/internal/types"
)

// State holds the counters of one processing run. Safe for concurrent use.
type State struct {
	mu sync.Mutex

	calls               progress.Calls
	titlesCompleted     int
	consecutiveFailures int
}

// Record folds one batch outcome into the counters and returns the number
// of consecutive failed batches after it
func (s *State) Record(batchSize int, result *types.BatchResult, completed int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls.Total++
	switch result.Status {
	case types.BatchSuccess:
		s.calls.Successful++
		s.consecutiveFailures = 0
	case types.BatchMismatch:
		s.calls.Mismatched++
		s.consecutiveFailures++
	default:
		s.calls.Failed++
		s.consecutiveFailures++
	}

	if result.Status.Billable() {
		s.calls.Billable++
		s.calls.BillableTitles += batchSize
		s.calls.Cost += result.Cost
	}
	if result.Err != nil {
		s.calls.LastError = result.Err.Error()
	}
	s.titlesCompleted += completed

	return s.consecutiveFailures
}

// SetError records an error that did not come from a batch outcome
func (s *State) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.LastError = err.Error()
}

// Snapshot returns a copy of the call counters
func (s *State) Snapshot() progress.Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// TitlesCompleted returns how many titles this run completed
func (s *State) TitlesCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.titlesCompleted
}
