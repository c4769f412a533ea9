package logging

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "warning", want: slog.LevelWarn},
		{input: " warn ", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.LevelWarn, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "batch", 3)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "batch=3")
}

func TestRecorderKeepsRecentEntries(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(NewHandler(slog.LevelError, &buf), slog.LevelInfo, 3)
	logger := slog.New(rec)

	logger.Debug("too quiet")
	for i := 1; i <= 5; i++ {
		logger.Info(fmt.Sprintf("entry %d", i))
	}

	entries := rec.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 3", entries[0].Message)
	assert.Equal(t, "entry 5", entries[2].Message)

	// The wrapped handler still filters by its own level
	assert.Empty(t, buf.String())
}

func TestRecorderPartialBuffer(t *testing.T) {
	rec := NewRecorder(slog.NewTextHandler(&bytes.Buffer{}, nil), slog.LevelInfo, 5)
	slog.New(rec).Warn("only one")

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, slog.LevelWarn, entries[0].Level)
}

func TestRecorderCapturesAttrs(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(NewHandler(slog.LevelInfo, &buf), slog.LevelInfo, 5)
	logger := slog.New(rec).With("run", "abc")

	logger.Error("batch failed", "error", errors.New("timeout"), "size", 50)

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "run=abc error=timeout size=50", entries[0].Attrs)
	assert.Contains(t, entries[0].String(), "ERROR batch failed run=abc error=timeout size=50")
	assert.Contains(t, buf.String(), "run=abc")
}
