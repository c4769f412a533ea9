// Package ingest loads job-title CSV files into the store. Each batch of rows
// upserts its distinct titles as canonical records and then links the raw
// rows to them, so re-ingesting a file only rewrites links.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/steveyegge/jobtitles/internal/types"
)

const (
	DefaultBatchSize   = 5000
	DefaultTitleColumn = "job_title"
	IDColumn           = "id"
)

// DefaultPlaceholders are title values treated like a blank title
var DefaultPlaceholders = []string{"--"}

// ErrMissingColumn is returned when the header lacks the id or title column
var ErrMissingColumn = errors.New("missing required column")

// Store is the part of the store ingest writes to
type Store interface {
	UpsertTitles(ctx context.Context, titles []string) error
	CanonicalIDs(ctx context.Context, titles []string) (map[string]int64, error)
	LinkRawToCanonical(ctx context.Context, raws []types.RawJob, titleToID map[string]int64) error
}

// Options control how a file is read
type Options struct {
	TitleColumn  string   `yaml:"title_column"`
	BatchSize    int      `yaml:"batch_size"`
	Placeholders []string `yaml:"placeholders"`
}

// DefaultOptions returns the standard ingest options
func DefaultOptions() Options {
	return Options{
		TitleColumn:  DefaultTitleColumn,
		BatchSize:    DefaultBatchSize,
		Placeholders: append([]string(nil), DefaultPlaceholders...),
	}
}

// Validate checks the options
func (o Options) Validate() error {
	if strings.TrimSpace(o.TitleColumn) == "" {
		return fmt.Errorf("title column must not be empty")
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("ingest batch size must be positive (got %d)", o.BatchSize)
	}
	return nil
}

// Progress reports rows written so far. Total is 0 when unknown.
type Progress struct {
	Rows  int
	Total int
}

// Result summarizes an ingest
type Result struct {
	Rows    int // raw rows stored
	Skipped int // rows stored unlinked because the title was blank or a placeholder
	Invalid int // rows dropped for a missing id
	Titles  int // distinct classifiable titles seen in the input
	Batches int
}

// Ingester writes CSV rows to a store
type Ingester struct {
	store        Store
	opts         Options
	placeholders map[string]bool
	logger       *slog.Logger
	onProgress   func(Progress)
}

// New creates an ingester. Zero-valued options take their defaults.
func New(store Store, opts Options, logger *slog.Logger) *Ingester {
	if opts.TitleColumn == "" {
		opts.TitleColumn = DefaultTitleColumn
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Placeholders == nil {
		opts.Placeholders = DefaultPlaceholders
	}
	if logger == nil {
		logger = slog.Default()
	}

	placeholders := make(map[string]bool, len(opts.Placeholders))
	for _, p := range opts.Placeholders {
		placeholders[strings.ToLower(strings.TrimSpace(p))] = true
	}

	return &Ingester{store: store, opts: opts, placeholders: placeholders, logger: logger}
}

// OnProgress registers a callback invoked after every stored batch
func (i *Ingester) OnProgress(fn func(Progress)) {
	i.onProgress = fn
}

// IsPlaceholder reports whether a title is blank or a configured placeholder
func (i *Ingester) IsPlaceholder(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	return t == "" || i.placeholders[t]
}

// File ingests the CSV file at path. The file is read twice: once to count
// rows for progress, once to store them.
func (i *Ingester) File(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	total, err := countRows(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}

	return i.read(ctx, f, total)
}

// Read ingests CSV data from r
func (i *Ingester) Read(ctx context.Context, r io.Reader) (*Result, error) {
	return i.read(ctx, r, 0)
}

func (i *Ingester) read(ctx context.Context, r io.Reader, total int) (*Result, error) {
	reader := newReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idCol, titleCol, err := i.columns(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	seen := make(map[string]bool)
	batch := make([]types.RawJob, 0, i.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := i.storeBatch(ctx, batch); err != nil {
			return err
		}
		result.Rows += len(batch)
		result.Batches++
		i.logger.Debug("ingested batch", "rows", len(batch), "total", result.Rows)
		if i.onProgress != nil {
			i.onProgress(Progress{Rows: result.Rows, Total: total})
		}
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return result, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		id := strings.TrimSpace(field(record, idCol))
		if id == "" {
			result.Invalid++
			i.logger.Warn("skipping row without id", "line", line)
			continue
		}

		title := strings.TrimSpace(field(record, titleCol))
		if i.IsPlaceholder(title) {
			result.Skipped++
		} else if !seen[title] {
			seen[title] = true
			result.Titles++
		}
		batch = append(batch, types.RawJob{ID: id, Title: title})

		if len(batch) >= i.opts.BatchSize {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := flush(); err != nil {
				return result, err
			}
		}
	}

	if err := flush(); err != nil {
		return result, err
	}

	i.logger.Info("ingest finished", "rows", result.Rows, "titles", result.Titles,
		"skipped", result.Skipped, "invalid", result.Invalid)
	return result, nil
}

// storeBatch upserts the batch's distinct titles and links every row
func (i *Ingester) storeBatch(ctx context.Context, batch []types.RawJob) error {
	titles := make([]string, 0, len(batch))
	distinct := make(map[string]bool, len(batch))
	for _, raw := range batch {
		if i.IsPlaceholder(raw.Title) || distinct[raw.Title] {
			continue
		}
		distinct[raw.Title] = true
		titles = append(titles, raw.Title)
	}

	if err := i.store.UpsertTitles(ctx, titles); err != nil {
		return fmt.Errorf("failed to store titles: %w", err)
	}
	ids, err := i.store.CanonicalIDs(ctx, titles)
	if err != nil {
		return fmt.Errorf("failed to look up titles: %w", err)
	}
	if len(ids) != len(titles) {
		return fmt.Errorf("stored %d titles but found %d", len(titles), len(ids))
	}
	if err := i.store.LinkRawToCanonical(ctx, batch, ids); err != nil {
		return fmt.Errorf("failed to store rows: %w", err)
	}
	return nil
}

// columns locates the id and title columns, matching names case-insensitively
func (i *Ingester) columns(header []string) (int, int, error) {
	idCol, titleCol := -1, -1
	want := strings.ToLower(strings.TrimSpace(i.opts.TitleColumn))
	for n, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if n == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		switch name {
		case IDColumn:
			if idCol < 0 {
				idCol = n
			}
		case want:
			if titleCol < 0 {
				titleCol = n
			}
		}
	}

	if idCol < 0 {
		return 0, 0, fmt.Errorf("%w %q", ErrMissingColumn, IDColumn)
	}
	if titleCol < 0 {
		return 0, 0, fmt.Errorf("%w %q", ErrMissingColumn, i.opts.TitleColumn)
	}
	return idCol, titleCol, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true
	return reader
}

// countRows returns the number of data rows after the header
func countRows(r io.Reader) (int, error) {
	reader := newReader(r)
	n := -1
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

func field(record []string, col int) string {
	if col >= len(record) {
		return ""
	}
	return record[col]
}
