package storage

import (
	"context"

	"github.com/steveyegge/jobtitles/internal/storage/sqlite"
	"github.com/steveyegge/jobtitles/internal/types"
)

// Storage defines the interface for the title store
type Storage interface {
	// Deduplication store
	UpsertTitles(ctx context.Context, titles []string) error
	CanonicalIDs(ctx context.Context, titles []string) (map[string]int64, error)
	LinkRawToCanonical(ctx context.Context, raws []types.RawJob, titleToID map[string]int64) error
	GetCanonicalTitle(ctx context.Context, id int64) (*types.CanonicalTitle, error)
	GetRawJob(ctx context.Context, id string) (*types.RawJob, error)

	// Statistics
	StatusCounts(ctx context.Context) (*types.StatusCounts, error)

	// Work claiming
	ClaimBatch(ctx context.Context, limit int) ([]*types.CanonicalTitle, error)
	ReclaimStale(ctx context.Context) (int64, error)

	// Reconciliation
	CompleteTitles(ctx context.Context, results []types.Classification) (int64, error)
	RevertTitles(ctx context.Context, ids []int64) (int64, error)

	// Export
	CountExportRows(ctx context.Context, filter types.ExportFilter) (int, error)
	ExportRows(ctx context.Context, filter types.ExportFilter, fn func(types.ExportRow) error) error

	// Run history
	CreateRun(ctx context.Context, run *types.Run) error
	FinishRun(ctx context.Context, run *types.Run) error
	ListRuns(ctx context.Context, limit int) ([]*types.Run, error)
	TotalCost(ctx context.Context) (float64, error)

	// Maintenance
	Reset(ctx context.Context, kind types.ResetKind) (int64, error)

	// Lifecycle
	Close() error
}

// Compile-time check that the SQLite backend implements Storage
var _ Storage = (*sqlite.SQLiteStorage)(nil)

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".jobtitles/jobtitles.db"
	Path string
}

// DefaultPath is where the database lives when nothing else is configured
const DefaultPath = ".jobtitles/jobtitles.db"

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: DefaultPath,
	}
}

// NewStorage creates a new SQLite storage backend
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	return sqlite.New(ctx, cfg.Path)
}
