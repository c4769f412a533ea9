package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/steveyegge/jobtitles/internal/standardize"
	"github.com/steveyegge/jobtitles/internal/storage"
	"github.com/steveyegge/jobtitles/internal/types"
)

// Reconciler applies a batch outcome to the store
type Reconciler struct {
	store  storage.Storage
	logger *slog.Logger
}

// NewReconciler creates a reconciler writing to store
func NewReconciler(store storage.Storage, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// Commit completes the batch on success and returns every record to pending
// otherwise. It returns the number of titles completed. Store errors are
// returned as-is; the batch then stays in processing until the next reclaim.
func (r *Reconciler) Commit(ctx context.Context, batch []*types.CanonicalTitle, result *types.BatchResult) (int, error) {
	if result.Status != types.BatchSuccess {
		ids := make([]int64, len(batch))
		for i, t := range batch {
			ids[i] = t.ID
		}
		reverted, err := r.store.RevertTitles(ctx, ids)
		if err != nil {
			return 0, fmt.Errorf("failed to revert batch: %w", err)
		}
		r.logger.Warn("batch reverted to pending",
			"status", string(result.Status), "size", len(batch), "reverted", reverted, "error", result.Err)
		return 0, nil
	}

	byID := result.ByID()
	updates := make([]types.Classification, 0, len(batch))
	for _, t := range batch {
		c, ok := byID[t.ID]
		if !ok {
			continue
		}
		c.StandardizedJobTitle = standardize.Title(c.JobSeniority, c.JobFunction, t.Title)
		updates = append(updates, c)
	}

	completed, err := r.store.CompleteTitles(ctx, updates)
	if err != nil {
		return 0, fmt.Errorf("failed to complete batch: %w", err)
	}
	return int(completed), nil
}
