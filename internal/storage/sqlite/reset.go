package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/steveyegge/jobtitles/internal/types"
)

// Reset clears store state and returns the number of canonical titles affected.
// ResetFull deletes all raw and canonical records. ResetProcessed returns every
// canonical title to pending and clears its classification. Run history is kept.
func (s *SQLiteStorage) Reset(ctx context.Context, kind types.ResetKind) (int64, error) {
	var affected int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		switch kind {
		case types.ResetFull:
			if _, err := tx.ExecContext(ctx, `DELETE FROM raw_jobs`); err != nil {
				return fmt.Errorf("failed to delete raw jobs: %w", err)
			}
			res, err := tx.ExecContext(ctx, `DELETE FROM canonical_titles`)
			if err != nil {
				return fmt.Errorf("failed to delete canonical titles: %w", err)
			}
			if affected, err = res.RowsAffected(); err != nil {
				return fmt.Errorf("failed to count deleted titles: %w", err)
			}
			// Restart surrogate ids
			if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'canonical_titles'`); err != nil {
				return fmt.Errorf("failed to reset id sequence: %w", err)
			}

		case types.ResetProcessed:
			res, err := tx.ExecContext(ctx, `
				UPDATE canonical_titles
				SET status = ?, job_function = NULL, job_seniority = NULL,
				    confidence = NULL, standardized_title = NULL, updated_at = ?
				WHERE status != ? OR job_function IS NOT NULL
			`, statusPending, formatTime(time.Now()), statusPending)
			if err != nil {
				return fmt.Errorf("failed to reset titles: %w", err)
			}
			if affected, err = res.RowsAffected(); err != nil {
				return fmt.Errorf("failed to count reset titles: %w", err)
			}

		default:
			return fmt.Errorf("invalid reset type %q", kind)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
