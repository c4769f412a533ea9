package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/jobtitles/internal/config"
	"github.com/steveyegge/jobtitles/internal/logging"
	"github.com/steveyegge/jobtitles/internal/storage"
)

var (
	configPath string
	dbPath     string
	logLevel   string

	cfg    *config.Config
	store  storage.Storage
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jobtitles",
	Short: "Classify job titles with an LLM",
	Long: `jobtitles ingests job titles from CSV, classifies each distinct title by
job function and seniority with the Anthropic API, and exports the results.

Typical workflow:
  jobtitles ingest jobs.csv
  jobtitles process --requests-per-minute 50
  jobtitles export classified.csv --min-confidence 0.7`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("db") {
			cfg.Database.Path = dbPath
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = logging.New(level, os.Stderr)
		slog.SetDefault(logger)

		store, err = storage.NewStorage(context.Background(), cfg.StorageConfig())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeStore()
	},
}

// closeStore closes the database opened in PersistentPreRun. Commands that
// exit early call it themselves since PersistentPostRun does not run then.
func closeStore() {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to close database: %v\n", err)
	}
	store = nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", storage.DefaultPath, "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
