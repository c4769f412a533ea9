// Package export writes classified titles to CSV or XLSX files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/steveyegge/jobtitles/internal/types"
)

// SheetName is the worksheet written to XLSX exports
const SheetName = "Job Titles"

// progressEvery is how many rows pass between progress callbacks
const progressEvery = 1000

// Format is an output file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks the format from the file extension; anything but .xlsx is CSV
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Source is the part of the store an export reads from
type Source interface {
	CountExportRows(ctx context.Context, filter types.ExportFilter) (int, error)
	ExportRows(ctx context.Context, filter types.ExportFilter, fn func(types.ExportRow) error) error
}

// Progress reports rows written so far out of Total
type Progress struct {
	Rows  int
	Total int
}

// Exporter writes filtered rows from a source
type Exporter struct {
	source     Source
	logger     *slog.Logger
	onProgress func(Progress)
}

// New creates an exporter reading from source
func New(source Source, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{source: source, logger: logger}
}

// OnProgress registers a callback invoked every 1000 rows and after the last
func (e *Exporter) OnProgress(fn func(Progress)) {
	e.onProgress = fn
}

// File writes the export to path in the format its extension selects and
// returns the number of rows written. A failed export removes the partial file.
func (e *Exporter) File(ctx context.Context, path string, filter types.ExportFilter) (int, error) {
	start := time.Now()
	format := FormatFor(path)

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	var n int
	switch format {
	case FormatXLSX:
		n, err = e.WriteXLSX(ctx, f, filter)
	default:
		n, err = e.WriteCSV(ctx, f, filter)
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}

	e.logger.Info("export finished", "path", path, "format", string(format), "rows", n,
		"elapsed_ms", time.Since(start).Milliseconds())
	return n, nil
}

// WriteCSV writes a header row and every matching row as CSV
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer, filter types.ExportFilter) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.ExportHeader); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	n, err := e.each(ctx, filter, func(row types.ExportRow) error {
		return cw.Write(row.Record())
	})
	if err != nil {
		return n, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("failed to write csv: %w", err)
	}
	return n, nil
}

// WriteXLSX streams a single-sheet workbook. Confidence is written as a
// number so spreadsheets can sort and filter on it.
func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer, filter types.ExportFilter) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, fmt.Errorf("failed to open sheet: %w", err)
	}

	// Widen the title columns
	_ = sw.SetColWidth(2, 2, 36)
	_ = sw.SetColWidth(3, 5, 24)

	header := make([]interface{}, len(types.ExportHeader))
	for i, h := range types.ExportHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	line := 1
	n, err := e.each(ctx, filter, func(row types.ExportRow) error {
		line++
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		var confidence interface{}
		if row.Confidence != nil {
			confidence = *row.Confidence
		}
		return sw.SetRow(cell, []interface{}{
			row.ID, row.JobTitle, row.JobFunction, row.JobSeniority, row.StandardizedTitle, confidence,
		})
	})
	if err != nil {
		return n, err
	}

	if err := sw.Flush(); err != nil {
		return n, fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return n, fmt.Errorf("xlsx write: %w", err)
	}
	return n, nil
}

// each streams matching rows to fn and drives the progress callback
func (e *Exporter) each(ctx context.Context, filter types.ExportFilter, fn func(types.ExportRow) error) (int, error) {
	total, err := e.source.CountExportRows(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}

	n := 0
	err = e.source.ExportRows(ctx, filter, func(row types.ExportRow) error {
		if err := fn(row); err != nil {
			return err
		}
		n++
		if e.onProgress != nil && (n%progressEvery == 0 || n == total) {
			e.onProgress(Progress{Rows: n, Total: total})
		}
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("failed to export rows: %w", err)
	}
	if e.onProgress != nil && n != total {
		e.onProgress(Progress{Rows: n, Total: n})
	}
	return n, nil
}
