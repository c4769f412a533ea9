package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/jobtitles/internal/progress"
	"github.com/steveyegge/jobtitles/internal/types"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCount(tt.n), "formatCount(%d)", tt.n)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m 3s", formatDuration(2*time.Minute+3*time.Second))
	assert.Equal(t, "1h 0m 5s", formatDuration(time.Hour+5*time.Second))
	assert.Equal(t, "2s", formatDuration(1600*time.Millisecond))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// Multi-byte characters are never split
	got := truncate("Myyntipäällikkö, Pohjois-Suomi", 11)
	assert.Equal(t, "Myyntipä...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "päällikkö", truncate("päällikkö", 9))
}

func TestRenderProgressBar(t *testing.T) {
	color.NoColor = true

	assert.Equal(t, "[█████░░░░░]", renderProgressBar(50, 10))
	assert.Equal(t, "[░░░░░░░░░░]", renderProgressBar(-5, 10))
	assert.Equal(t, "[██████████]", renderProgressBar(150, 10))
}

func TestRenderSnapshot(t *testing.T) {
	color.NoColor = true

	snap := progress.Snapshot{
		Counts: types.StatusCounts{
			Unique: types.Tally{Pending: 50, Completed: 50},
			Raw:    types.Tally{Pending: 60, Completed: 80},
			Total:  150,
		},
		Calls: progress.Calls{Total: 3, Successful: 2, Failed: 1, LastError: "boom"},
	}

	out := strings.Join(renderSnapshot(snap, "claude-haiku", "throughput (30/min)"), "\n")
	assert.Contains(t, out, "Model: claude-haiku")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "calculating...")
	assert.Contains(t, out, "3 total, 2 ok, 1 failed")
	assert.Contains(t, out, "Last error: boom")
	assert.NotContains(t, out, "Recent log:")
}

func TestBlockWriterNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	b := newBlockWriter(&buf)
	assert.False(t, b.tty)

	b.Draw([]string{"one", "two"})
	b.Draw([]string{"three"})
	assert.Equal(t, "one\ntwo\nthree\n", buf.String())
}

func TestLineWriterNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	l := newLineWriter(&buf)
	l.Update("progress")
	l.Done()
	assert.Empty(t, buf.String())
}
