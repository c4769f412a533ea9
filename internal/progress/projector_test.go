package progress

import (
	"testing"
	"time"

	"github.com/steveyegge/jobtitles/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func counts(pending, processing, completed int) types.StatusCounts {
	return types.StatusCounts{Unique: types.Tally{Pending: pending, Processing: processing, Completed: completed}}
}

func TestObserveStartTime(t *testing.T) {
	p := NewProjector()

	snap := p.Observe(t0, counts(10, 0, 0), Calls{})
	assert.Zero(t, snap.Elapsed)

	p.Observe(t0.Add(time.Second), counts(5, 5, 0), Calls{})
	snap = p.Observe(t0.Add(4*time.Second), counts(0, 5, 5), Calls{})
	assert.Equal(t, 3*time.Second, snap.Elapsed)
}

func TestObserveRateAndETA(t *testing.T) {
	p := NewProjector()

	snap := p.Observe(t0, counts(90, 10, 0), Calls{})
	assert.False(t, snap.ETAKnown, "one sample is not enough")

	snap = p.Observe(t0.Add(500*time.Millisecond), counts(80, 10, 10), Calls{})
	assert.False(t, snap.ETAKnown, "window must span more than a second")

	snap = p.Observe(t0.Add(2*time.Second), counts(70, 10, 20), Calls{})
	require.True(t, snap.ETAKnown)
	assert.InDelta(t, 10.0, snap.Rate, 1e-9)
	assert.Equal(t, 8*time.Second, snap.ETA)
}

func TestObserveZeroRateIsUnknown(t *testing.T) {
	p := NewProjector()
	p.Observe(t0, counts(10, 0, 0), Calls{})
	snap := p.Observe(t0.Add(5*time.Second), counts(10, 0, 0), Calls{})

	assert.False(t, snap.ETAKnown)
	assert.Zero(t, snap.Rate)
}

func TestObserveNothingRemaining(t *testing.T) {
	p := NewProjector()
	snap := p.Observe(t0, counts(0, 0, 10), Calls{})

	assert.True(t, snap.ETAKnown)
	assert.Zero(t, snap.ETA)
}

func TestHistoryWindowPrunes(t *testing.T) {
	p := NewProjector()
	p.Observe(t0, counts(100, 0, 0), Calls{})
	p.Observe(t0.Add(30*time.Second), counts(50, 0, 50), Calls{})
	p.Observe(t0.Add(70*time.Second), counts(30, 0, 70), Calls{})

	history := p.History()
	require.Len(t, history, 2)
	assert.Equal(t, 50, history[0].Completed)

	// Rate comes only from the retained window: 20 over 40s
	snap := p.Observe(t0.Add(70*time.Second), counts(30, 0, 70), Calls{})
	assert.InDelta(t, 0.5, snap.Rate, 1e-9)
}

func TestProjectedCost(t *testing.T) {
	assert.Zero(t, ProjectCost(1.0, 100, 0))
	assert.InDelta(t, 3.0, ProjectCost(1.0, 200, 100), 1e-9)
	assert.InDelta(t, 1.0, ProjectCost(1.0, 0, 100), 1e-9)

	p := NewProjector()
	snap := p.Observe(t0, counts(50, 0, 50), Calls{Cost: 0.5, BillableTitles: 50})
	assert.InDelta(t, 1.0, snap.ProjectedCost, 1e-9)
	assert.Equal(t, 0.5, snap.Calls.Cost)
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(DefaultEmitInterval)

	assert.True(t, d.Allow(t0))
	assert.False(t, d.Allow(t0.Add(100*time.Millisecond)))
	assert.False(t, d.Allow(t0.Add(499*time.Millisecond)))
	assert.True(t, d.Allow(t0.Add(500*time.Millisecond)))
	assert.False(t, d.Allow(t0.Add(900*time.Millisecond)))
	assert.True(t, d.Allow(t0.Add(2*time.Second)))
}
