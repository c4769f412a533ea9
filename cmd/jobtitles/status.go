package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show classification progress and run history",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runs, _ := cmd.Flags().GetInt("runs")
		ctx := context.Background()

		counts, err := store.StatusCounts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("%s\n\n", cyan("=== Job Title Status ==="))
		fmt.Printf("%s %.1f%%\n\n", renderProgressBar(counts.PercentComplete(), 40), counts.PercentComplete())

		fmt.Printf("%-10s %12s %12s %12s %12s\n", "", "Pending", "Processing", "Completed", "Total")
		fmt.Printf("%-10s %12s %12s %12s %12s\n", "Unique",
			formatCount(counts.Unique.Pending), formatCount(counts.Unique.Processing),
			formatCount(counts.Unique.Completed), formatCount(counts.Unique.Total()))
		fmt.Printf("%-10s %12s %12s %12s %12s\n", "Rows",
			formatCount(counts.Raw.Pending), formatCount(counts.Raw.Processing),
			formatCount(counts.Raw.Completed), formatCount(counts.Total))
		fmt.Println()
		fmt.Printf("  Completed via cache:  %s\n", formatCount(counts.Cached))
		fmt.Printf("  Skipped (blank):      %s\n", formatCount(counts.Skipped))

		if counts.Unique.Processing > 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s %s titles are marked processing; the next process run returns them to the queue\n",
				yellow("⚠"), formatCount(counts.Unique.Processing))
		}

		if runs <= 0 {
			return
		}

		history, err := store.ListRuns(ctx, runs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		total, err := store.TotalCost(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s\n", cyan("Recent runs"))
		if len(history) == 0 {
			fmt.Println(gray("  No runs yet"))
			return
		}
		for _, run := range history {
			duration := "running"
			if run.FinishedAt != nil {
				duration = formatDuration(run.FinishedAt.Sub(run.StartedAt))
			}
			fmt.Printf("  %s  %s  %-10s %9s  %4d calls  %s titles  $%.4f\n",
				shortID(run.ID), run.StartedAt.Local().Format("2006-01-02 15:04"), run.RateMode, duration,
				run.TotalCalls, formatCount(run.TitlesCompleted), run.Cost)
			if run.Error != "" {
				fmt.Printf("            %s %s\n", red("error:"), truncate(run.Error, 100))
			}
		}
		fmt.Printf("\n  Total spent: $%.4f\n", total)
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	statusCmd.Flags().Int("runs", 10, "Number of recent runs to show (0 to hide)")
	rootCmd.AddCommand(statusCmd)
}
