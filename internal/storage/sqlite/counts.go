package sqlite

import (
	"context"
	"fmt"

	"github.com/steveyegge/jobtitles/internal/types"
)

// StatusCounts returns raw and unique record counts per status.
// Raw rows without a canonical link are reported only as Skipped.
func (s *SQLiteStorage) StatusCounts(ctx context.Context) (*types.StatusCounts, error) {
	counts := &types.StatusCounts{}

	if err := s.tally(ctx, &counts.Unique, `
		SELECT status, COUNT(*) FROM canonical_titles GROUP BY status
	`); err != nil {
		return nil, fmt.Errorf("failed to count unique titles: %w", err)
	}

	if err := s.tally(ctx, &counts.Raw, `
		SELECT c.status, COUNT(*)
		FROM raw_jobs r
		JOIN canonical_titles c ON c.id = r.canonical_id
		GROUP BY c.status
	`); err != nil {
		return nil, fmt.Errorf("failed to count raw jobs: %w", err)
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN canonical_id IS NULL THEN 1 ELSE 0 END), 0)
		FROM raw_jobs
	`).Scan(&counts.Total, &counts.Skipped)
	if err != nil {
		return nil, fmt.Errorf("failed to count skipped rows: %w", err)
	}

	counts.ComputeCached()
	return counts, nil
}

// tally runs a (status, count) query and accumulates it into t
func (s *SQLiteStorage) tally(ctx context.Context, t *types.Tally, query string) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		counter := t.Counter(types.TitleStatus(status))
		if counter == nil {
			return fmt.Errorf("unknown status %q in store", status)
		}
		*counter += n
	}
	return rows.Err()
}
