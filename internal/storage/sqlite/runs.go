package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/steveyegge/jobtitles/internal/types"
)

// CreateRun records the start of a processing run
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *types.Run) error {
	_, err := s.builder().
		Insert("runs").
		Columns("id", "started_at", "batch_size", "rate_mode").
		Values(run.ID, formatTime(run.StartedAt), run.BatchSize, run.RateMode).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run
func (s *SQLiteStorage) FinishRun(ctx context.Context, run *types.Run) error {
	b := s.builder().
		Update("runs").
		Set("total_calls", run.TotalCalls).
		Set("successful_calls", run.SuccessfulCalls).
		Set("failed_calls", run.FailedCalls).
		Set("mismatch_calls", run.MismatchCalls).
		Set("titles_completed", run.TitlesCompleted).
		Set("cost", run.Cost).
		Set("error", run.Error).
		Where("id = ?", run.ID)
	if run.FinishedAt != nil {
		b = b.Set("finished_at", formatTime(*run.FinishedAt))
	}

	res, err := b.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check run update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*types.Run, error) {
	q := s.builder().
		Select("id", "started_at", "finished_at", "batch_size", "rate_mode",
			"total_calls", "successful_calls", "failed_calls", "mismatch_calls",
			"titles_completed", "cost", "error").
		From("runs").
		OrderBy("started_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*types.Run
	for rows.Next() {
		var run types.Run
		var startedAt string
		var finishedAt sql.NullString
		err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.BatchSize, &run.RateMode,
			&run.TotalCalls, &run.SuccessfulCalls, &run.FailedCalls, &run.MismatchCalls,
			&run.TitlesCompleted, &run.Cost, &run.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			t, err := parseTime(finishedAt.String)
			if err != nil {
				return nil, err
			}
			run.FinishedAt = &t
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// TotalCost sums the cost of every recorded run
func (s *SQLiteStorage) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(cost), 0) FROM runs`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum run cost: %w", err)
	}
	return total, nil
}
