package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/steveyegge/jobtitles/internal/types"
)

// UpsertTitles inserts canonical titles that do not exist yet.
// Existing titles are left untouched (first writer wins).
func (s *SQLiteStorage) UpsertTitles(ctx context.Context, titles []string) error {
	if len(titles) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range chunks(len(titles)) {
			part := titles[c[0]:c[1]]
			query := "INSERT OR IGNORE INTO canonical_titles (title) VALUES " +
				strings.TrimSuffix(strings.Repeat("(?),", len(part)), ",")
			args := make([]interface{}, len(part))
			for i, t := range part {
				args[i] = t
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to insert titles: %w", err)
			}
		}
		return nil
	})
}

// CanonicalIDs returns the surrogate id for every title that exists
func (s *SQLiteStorage) CanonicalIDs(ctx context.Context, titles []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(titles))

	for _, c := range chunks(len(titles)) {
		rows, err := s.builder().
			Select("id", "title").
			From("canonical_titles").
			Where(sq.Eq{"title": titles[c[0]:c[1]]}).
			QueryContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to look up canonical ids: %w", err)
		}

		for rows.Next() {
			var id int64
			var title string
			if err := rows.Scan(&id, &title); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan canonical id: %w", err)
			}
			ids[title] = id
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate canonical ids: %w", err)
		}
	}

	return ids, nil
}

// LinkRawToCanonical upserts raw job rows and points them at their canonical title.
// A raw row whose title is missing from titleToID is stored unlinked.
func (s *SQLiteStorage) LinkRawToCanonical(ctx context.Context, raws []types.RawJob, titleToID map[string]int64) error {
	if len(raws) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range chunks(len(raws)) {
			part := raws[c[0]:c[1]]
			query := "INSERT INTO raw_jobs (id, title, canonical_id) VALUES " +
				strings.TrimSuffix(strings.Repeat("(?, ?, ?),", len(part)), ",") +
				" ON CONFLICT(id) DO UPDATE SET title = excluded.title, canonical_id = excluded.canonical_id"

			args := make([]interface{}, 0, len(part)*3)
			for _, raw := range part {
				var canonicalID interface{}
				if id, ok := titleToID[raw.Title]; ok {
					canonicalID = id
				}
				args = append(args, raw.ID, raw.Title, canonicalID)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to link raw jobs: %w", err)
			}
		}
		return nil
	})
}

const canonicalColumns = `id, title, status, job_function, job_seniority, confidence, standardized_title, updated_at`

// GetCanonicalTitle retrieves a canonical title by id
func (s *SQLiteStorage) GetCanonicalTitle(ctx context.Context, id int64) (*types.CanonicalTitle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+canonicalColumns+` FROM canonical_titles WHERE id = ?`, id)
	title, err := scanCanonical(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get canonical title: %w", err)
	}
	return title, nil
}

// GetRawJob retrieves a raw job row by its source id
func (s *SQLiteStorage) GetRawJob(ctx context.Context, id string) (*types.RawJob, error) {
	var raw types.RawJob
	var canonicalID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT id, title, canonical_id FROM raw_jobs WHERE id = ?`, id).
		Scan(&raw.ID, &raw.Title, &canonicalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw job: %w", err)
	}
	if canonicalID.Valid {
		raw.CanonicalID = &canonicalID.Int64
	}
	return &raw, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCanonical(row rowScanner) (*types.CanonicalTitle, error) {
	var t types.CanonicalTitle
	var status, updatedAt string
	var function, seniority, standardized sql.NullString
	var confidence sql.NullFloat64

	if err := row.Scan(&t.ID, &t.Title, &status, &function, &seniority, &confidence, &standardized, &updatedAt); err != nil {
		return nil, err
	}

	t.Status = types.TitleStatus(status)
	t.JobFunction = function.String
	t.JobSeniority = seniority.String
	t.StandardizedTitle = standardized.String
	if confidence.Valid {
		t.Confidence = &confidence.Float64
	}

	ts, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt = ts

	return &t, nil
}
