package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/steveyegge/jobtitles/internal/types"
)

// ClaimBatch atomically moves up to limit pending titles to processing and
// returns them in id order. The select and update are one statement, so two
// concurrent claimers can never receive the same record.
// An empty result means nothing is pending.
func (s *SQLiteStorage) ClaimBatch(ctx context.Context, limit int) ([]*types.CanonicalTitle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("claim limit must be positive, got %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		UPDATE canonical_titles
		SET status = ?, updated_at = ?
		WHERE id IN (
			SELECT id FROM canonical_titles
			WHERE status = ?
			ORDER BY id
			LIMIT ?
		)
		AND status = ?
		RETURNING `+canonicalColumns,
		statusProcessing, formatTime(time.Now()),
		statusPending, limit, statusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to claim batch: %w", err)
	}
	defer rows.Close()

	var claimed []*types.CanonicalTitle
	for rows.Next() {
		t, err := scanCanonical(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed title: %w", err)
		}
		claimed = append(claimed, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claimed titles: %w", err)
	}

	// RETURNING order is unspecified
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].ID < claimed[j].ID })

	return claimed, nil
}

// ReclaimStale returns every processing title to pending.
// Call it once before a run starts; a crashed run leaves its batches in processing.
func (s *SQLiteStorage) ReclaimStale(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE canonical_titles SET status = ?, updated_at = ? WHERE status = ?`,
		statusPending, formatTime(time.Now()), statusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale titles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reclaimed titles: %w", err)
	}
	return n, nil
}

// CompleteTitles writes classification results and marks the titles completed
// in a single transaction. Titles not currently in processing are skipped.
func (s *SQLiteStorage) CompleteTitles(ctx context.Context, results []types.Classification) (int64, error) {
	if len(results) == 0 {
		return 0, nil
	}

	var completed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE canonical_titles
			SET status = ?, job_function = ?, job_seniority = ?, confidence = ?,
			    standardized_title = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare completion: %w", err)
		}
		defer stmt.Close()

		now := formatTime(time.Now())
		for _, r := range results {
			res, err := stmt.ExecContext(ctx,
				statusCompleted, r.JobFunction, r.JobSeniority, r.Confidence,
				r.StandardizedJobTitle, now, r.ID, statusProcessing)
			if err != nil {
				return fmt.Errorf("failed to complete title %d: %w", r.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to count completed titles: %w", err)
			}
			completed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return completed, nil
}

// RevertTitles returns processing titles to pending so a later claim picks them up
func (s *SQLiteStorage) RevertTitles(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var reverted int64
	for _, c := range chunks(len(ids)) {
		res, err := s.builder().
			Update("canonical_titles").
			Set("status", statusPending).
			Set("updated_at", formatTime(time.Now())).
			Where(sq.Eq{"id": ids[c[0]:c[1]], "status": statusProcessing}).
			ExecContext(ctx)
		if err != nil {
			return reverted, fmt.Errorf("failed to revert titles: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return reverted, fmt.Errorf("failed to count reverted titles: %w", err)
		}
		reverted += n
	}
	return reverted, nil
}
