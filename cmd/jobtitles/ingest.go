package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/jobtitles/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Load job titles from a CSV file",
	Long: `Load rows from a CSV file with an id column and a title column.

Each distinct title becomes one record to classify; rows sharing a title
reuse its result. Blank and placeholder titles are stored but never sent
for classification. Ingesting the same file again is safe: existing
titles keep their status and results.

Examples:
  jobtitles ingest jobs.csv
  jobtitles ingest export.csv --title-column position`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := cfg.Ingest
		if cmd.Flags().Changed("title-column") {
			opts.TitleColumn, _ = cmd.Flags().GetString("title-column")
		}
		if err := opts.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		in := ingest.New(store, opts, logger)
		bar := newLineWriter(os.Stderr)
		in.OnProgress(func(p ingest.Progress) {
			percent := 0.0
			if p.Total > 0 {
				percent = float64(p.Rows) / float64(p.Total) * 100
			}
			bar.Update(fmt.Sprintf("%s %s / %s rows", renderProgressBar(percent, 40),
				formatCount(p.Rows), formatCount(p.Total)))
		})

		start := time.Now()
		result, err := in.File(ctx, args[0])
		bar.Done()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Ingested %s rows in %v\n", green("✓"), formatCount(result.Rows),
			time.Since(start).Round(time.Millisecond))
		fmt.Printf("  Distinct titles:  %s\n", formatCount(result.Titles))
		if result.Skipped > 0 {
			fmt.Printf("  Skipped (blank):  %s\n", formatCount(result.Skipped))
		}
		if result.Invalid > 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("  %s %s rows had no id and were dropped\n", yellow("⚠"), formatCount(result.Invalid))
		}
	},
}

func init() {
	ingestCmd.Flags().String("title-column", ingest.DefaultTitleColumn, "Name of the CSV column holding the job title")
	rootCmd.AddCommand(ingestCmd)
}
