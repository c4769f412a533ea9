package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyCounter(t *testing.T) {
	var tally Tally
	for _, s := range AllStatuses {
		p := tally.Counter(s)
		require.NotNil(t, p, "status %s has no counter", s)
		*p += 2
	}
	assert.Equal(t, Tally{Pending: 2, Processing: 2, Completed: 2}, tally)
	assert.Nil(t, tally.Counter(TitleStatus("failed")))
	assert.Equal(t, 6, tally.Total())
	assert.Equal(t, 4, tally.Remaining())
}

func TestParseTitleStatus(t *testing.T) {
	s, err := ParseTitleStatus(" Completed ")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseTitleStatus("done")
	assert.Error(t, err)
}

func TestComputeCached(t *testing.T) {
	c := StatusCounts{
		Raw:    Tally{Completed: 10},
		Unique: Tally{Completed: 4, Pending: 4},
	}
	c.ComputeCached()
	assert.Equal(t, 6, c.Cached)
	assert.InDelta(t, 50.0, c.PercentComplete(), 0.001)
}

func TestEnumerations(t *testing.T) {
	assert.Len(t, JobSeniorities, 15)
	assert.True(t, IsValidFunction("Other Commercial"))
	assert.True(t, IsValidSeniority("Head of"))
	assert.False(t, IsValidFunction("Astronaut"))
}

func TestExportRowRecord(t *testing.T) {
	conf := 0.85
	row := ExportRow{ID: "1", JobTitle: "CFO", JobFunction: "Finance", JobSeniority: "Chief", StandardizedTitle: "Chief Finance Officer", Confidence: &conf}
	assert.Equal(t, []string{"1", "CFO", "Finance", "Chief", "Chief Finance Officer", "0.85"}, row.Record())

	empty := ExportRow{ID: "2"}
	assert.Equal(t, "", empty.Record()[5])
}

func TestBatchStatusBillable(t *testing.T) {
	assert.True(t, BatchSuccess.Billable())
	assert.True(t, BatchMismatch.Billable())
	assert.False(t, BatchError.Billable())
}
