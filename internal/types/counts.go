package types

// Tally counts records per title status
type Tally struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
}

// Counter returns the field that tracks status s, or nil for an unknown status
func (t *Tally) Counter(s TitleStatus) *int {
	switch s {
	case StatusPending:
		return &t.Pending
	case StatusProcessing:
		return &t.Processing
	case StatusCompleted:
		return &t.Completed
	}
	return nil
}

// Total is the sum over all statuses
func (t Tally) Total() int {
	return t.Pending + t.Processing + t.Completed
}

// Remaining is the number of records not yet completed
func (t Tally) Remaining() int {
	return t.Pending + t.Processing
}

// StatusCounts breaks store state down by raw rows and canonical titles.
// Skipped raw rows (blank or placeholder titles) appear in Total and Skipped
// but in neither tally.
type StatusCounts struct {
	Raw     Tally `json:"raw"`
	Unique  Tally `json:"unique"`
	Total   int   `json:"total"`
	Skipped int   `json:"skipped"`
	// Cached counts completed raw rows that reused a title classified once
	// for another row.
	Cached int `json:"cached"`
}

// ComputeCached derives Cached from the two tallies
func (c *StatusCounts) ComputeCached() {
	c.Cached = c.Raw.Completed - c.Unique.Completed
	if c.Cached < 0 {
		c.Cached = 0
	}
}

// PercentComplete returns unique completion as a percentage
func (c *StatusCounts) PercentComplete() float64 {
	total := c.Unique.Total()
	if total == 0 {
		return 0
	}
	return float64(c.Unique.Completed) / float64(total) * 100
}
