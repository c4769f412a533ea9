package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/jobtitles/internal/export"
	"github.com/steveyegge/jobtitles/internal/types"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write classified titles to CSV or XLSX",
	Long: `Write one row per ingested record with its classification, highest
confidence first. A path ending in .xlsx produces an Excel workbook;
anything else is written as CSV.

Examples:
  jobtitles export classified.csv
  jobtitles export review.xlsx --status completed --min-confidence 0.8`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var filter types.ExportFilter

		if cmd.Flags().Changed("status") {
			value, _ := cmd.Flags().GetString("status")
			status, err := types.ParseTitleStatus(value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			filter.Status = status
		}
		if cmd.Flags().Changed("min-confidence") {
			minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
			if minConfidence < 0 || minConfidence > 1 {
				fmt.Fprintf(os.Stderr, "Error: --min-confidence must be between 0 and 1 (got %g)\n", minConfidence)
				os.Exit(1)
			}
			filter.MinConfidence = &minConfidence
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exporter := export.New(store, logger)
		bar := newLineWriter(os.Stderr)
		exporter.OnProgress(func(p export.Progress) {
			percent := 100.0
			if p.Total > 0 {
				percent = float64(p.Rows) / float64(p.Total) * 100
			}
			bar.Update(fmt.Sprintf("%s %s / %s rows", renderProgressBar(percent, 40),
				formatCount(p.Rows), formatCount(p.Total)))
		})

		n, err := exporter.File(ctx, args[0], filter)
		bar.Done()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Exported %s rows to %s (%s)\n", green("✓"), formatCount(n), args[0], export.FormatFor(args[0]))
	},
}

func init() {
	exportCmd.Flags().String("status", "", "Only export titles with this status (pending, processing, completed)")
	exportCmd.Flags().Float64("min-confidence", 0, "Only export titles classified with at least this confidence (0-1)")
	rootCmd.AddCommand(exportCmd)
}
