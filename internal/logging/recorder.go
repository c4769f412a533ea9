package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultRecorderSize is how many entries a Recorder keeps
const DefaultRecorderSize = 10

// Entry is one recorded log line
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   string // key=value pairs, space separated
}

// String renders the entry on one line
func (e Entry) String() string {
	s := fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05"), e.Level.String(), e.Message)
	if e.Attrs != "" {
		s += " " + e.Attrs
	}
	return s
}

// ring is the buffer shared by a Recorder and its derived handlers
type ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func (r *ring) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Entry(nil), r.entries[:r.next]...)
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}

// Recorder is a slog.Handler that keeps the most recent entries at or above
// a minimum level and forwards every record to the wrapped handler.
type Recorder struct {
	next     slog.Handler
	minLevel slog.Level
	buf      *ring
	attrs    string
}

// NewRecorder wraps next, keeping the last size entries at minLevel or above
func NewRecorder(next slog.Handler, minLevel slog.Level, size int) *Recorder {
	if size <= 0 {
		size = DefaultRecorderSize
	}
	return &Recorder{
		next:     next,
		minLevel: minLevel,
		buf:      &ring{entries: make([]Entry, size)},
	}
}

// Entries returns the recorded entries, oldest first
func (r *Recorder) Entries() []Entry {
	return r.buf.snapshot()
}

// Enabled implements slog.Handler
func (r *Recorder) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= r.minLevel || r.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (r *Recorder) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level >= r.minLevel {
		var attrs []string
		if r.attrs != "" {
			attrs = append(attrs, r.attrs)
		}
		rec.Attrs(func(a slog.Attr) bool {
			attrs = append(attrs, formatAttr(a))
			return true
		})
		r.buf.add(Entry{
			Time:    rec.Time,
			Level:   rec.Level,
			Message: rec.Message,
			Attrs:   strings.Join(attrs, " "),
		})
	}

	if r.next.Enabled(ctx, rec.Level) {
		return r.next.Handle(ctx, rec)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	parts := make([]string, 0, len(attrs)+1)
	if r.attrs != "" {
		parts = append(parts, r.attrs)
	}
	for _, a := range attrs {
		parts = append(parts, formatAttr(a))
	}
	return &Recorder{
		next:     r.next.WithAttrs(attrs),
		minLevel: r.minLevel,
		buf:      r.buf,
		attrs:    strings.Join(parts, " "),
	}
}

// WithGroup implements slog.Handler. Groups only affect the wrapped handler.
func (r *Recorder) WithGroup(name string) slog.Handler {
	return &Recorder{
		next:     r.next.WithGroup(name),
		minLevel: r.minLevel,
		buf:      r.buf,
		attrs:    r.attrs,
	}
}

func formatAttr(a slog.Attr) string {
	return a.Key + "=" + a.Value.Resolve().String()
}
