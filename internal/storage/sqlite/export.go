package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/steveyegge/jobtitles/internal/types"
)

// exportQuery applies the filter to a raw_jobs/canonical_titles join
func exportQuery(b sq.SelectBuilder, filter types.ExportFilter) sq.SelectBuilder {
	b = b.From("raw_jobs r").LeftJoin("canonical_titles c ON c.id = r.canonical_id")

	if filter.Status != "" {
		b = b.Where(sq.Eq{"c.status": string(filter.Status)})
	}
	if filter.MinConfidence != nil {
		b = b.Where(sq.GtOrEq{"c.confidence": *filter.MinConfidence})
	}
	return b
}

// CountExportRows returns how many rows ExportRows would produce
func (s *SQLiteStorage) CountExportRows(ctx context.Context, filter types.ExportFilter) (int, error) {
	var n int
	err := exportQuery(s.builder().Select("COUNT(*)"), filter).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count export rows: %w", err)
	}
	return n, nil
}

// ExportRows streams raw records joined to their classification, highest
// confidence first. Unclassified rows sort last.
func (s *SQLiteStorage) ExportRows(ctx context.Context, filter types.ExportFilter, fn func(types.ExportRow) error) error {
	rows, err := exportQuery(s.builder().Select(
		"r.id", "r.title", "c.job_function", "c.job_seniority", "c.standardized_title", "c.confidence",
	), filter).
		OrderBy("c.confidence IS NULL", "c.confidence DESC", "r.id").
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query export rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row types.ExportRow
		var function, seniority, standardized sql.NullString
		var confidence sql.NullFloat64
		if err := rows.Scan(&row.ID, &row.JobTitle, &function, &seniority, &standardized, &confidence); err != nil {
			return fmt.Errorf("failed to scan export row: %w", err)
		}
		row.JobFunction = function.String
		row.JobSeniority = seniority.String
		row.StandardizedTitle = standardized.String
		if confidence.Valid {
			c := confidence.Float64
			row.Confidence = &c
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate export rows: %w", err)
	}
	return nil
}
