package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/steveyegge/jobtitles/internal/progress"
)

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// lineWriter redraws a single status line in place on a terminal and prints
// nothing otherwise
type lineWriter struct {
	w     io.Writer
	tty   bool
	drawn bool
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: w, tty: isTerminal(w)}
}

func (l *lineWriter) Update(line string) {
	if !l.tty {
		return
	}
	fmt.Fprintf(l.w, "\r\033[K%s", line)
	l.drawn = true
}

func (l *lineWriter) Done() {
	if l.drawn {
		fmt.Fprintln(l.w)
		l.drawn = false
	}
}

// blockWriter redraws a multi-line block in place on a terminal. Elsewhere
// each block is printed in full.
type blockWriter struct {
	w     io.Writer
	tty   bool
	lines int
}

func newBlockWriter(w io.Writer) *blockWriter {
	return &blockWriter{w: w, tty: isTerminal(w)}
}

func (b *blockWriter) Draw(lines []string) {
	if b.tty && b.lines > 0 {
		fmt.Fprintf(b.w, "\033[%dA\033[J", b.lines)
	}
	for _, line := range lines {
		fmt.Fprintln(b.w, line)
	}
	b.lines = len(lines)
}

// renderSnapshot formats a progress snapshot for the process display
func renderSnapshot(snap progress.Snapshot, model, mode string) []string {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	u := snap.Counts.Unique
	lines := []string{
		cyan("=== Job Title Processing ==="),
		fmt.Sprintf("Model: %s   Pacing: %s", model, mode),
		"",
		fmt.Sprintf("%s %.1f%%", renderProgressBar(snap.Counts.PercentComplete(), 40), snap.Counts.PercentComplete()),
		fmt.Sprintf("  Unique:   %s completed, %s processing, %s pending",
			formatCount(u.Completed), formatCount(u.Processing), formatCount(u.Pending)),
		fmt.Sprintf("  Rows:     %s completed of %s (%s via cache, %s skipped)",
			formatCount(snap.Counts.Raw.Completed), formatCount(snap.Counts.Total),
			formatCount(snap.Counts.Cached), formatCount(snap.Counts.Skipped)),
	}

	eta := "calculating..."
	if snap.ETAKnown {
		eta = formatDuration(snap.ETA)
	}
	lines = append(lines,
		fmt.Sprintf("  Elapsed:  %s   Rate: %.1f titles/s   ETA: %s", formatDuration(snap.Elapsed), snap.Rate, eta),
		fmt.Sprintf("  Calls:    %d total, %d ok, %d failed, %d mismatched",
			snap.Calls.Total, snap.Calls.Successful, snap.Calls.Failed, snap.Calls.Mismatched),
		fmt.Sprintf("  Cost:     $%.4f   Projected: $%.4f", snap.Calls.Cost, snap.ProjectedCost),
	)
	if snap.Calls.LastError != "" {
		lines = append(lines, fmt.Sprintf("  %s %s", red("Last error:"), truncate(snap.Calls.LastError, 100)))
	}

	if len(snap.Logs) > 0 {
		lines = append(lines, "", yellow("Recent log:"))
		for _, e := range snap.Logs {
			lines = append(lines, "  "+gray(truncate(e.String(), 120)))
		}
	}
	return lines
}

// renderProgressBar renders a text-based progress bar
func renderProgressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))

	barColor := color.New(color.FgYellow)
	if percent >= 100 {
		barColor = color.New(color.FgGreen, color.Bold)
	}

	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString(barColor.Sprint("█"))
		} else {
			bar.WriteString(color.New(color.FgHiBlack).Sprint("░"))
		}
	}

	return fmt.Sprintf("[%s]", bar.String())
}

// formatCount formats a count with thousands separators
func formatCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatCount(-n)
	}
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatDuration renders d as "1h 2m 3s", "2m 3s" or "3s"
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// truncate shortens s to at most n runes, ending in "..." when cut
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
