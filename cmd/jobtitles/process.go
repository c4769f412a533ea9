package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/jobtitles/internal/ai"
	"github.com/steveyegge/jobtitles/internal/logging"
	"github.com/steveyegge/jobtitles/internal/processor"
)

// processLogName is the log file written next to the database during process
const processLogName = "process.log"

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Classify pending job titles",
	Long: `Send pending titles to the model in batches and store the results.

Pacing is either throughput mode (--requests-per-minute: up to N batches in
flight, starts spread evenly over the minute) or spacing mode (--min-wait:
one batch at a time, each started at least the given delay after the
previous one finished). The two flags cannot be combined. With neither,
throughput mode at 30 requests per minute is used.

Failed or inconsistent batches return to the queue and are retried in the
same run. Ctrl+C stops new batches; batches already sent are saved.

Examples:
  jobtitles process
  jobtitles process --batch-size 50 --requests-per-minute 100
  jobtitles process --min-wait 2s`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if code := runProcess(cmd); code != 0 {
			closeStore()
			os.Exit(code)
		}
	},
}

// runProcess runs the process command and returns the exit code, so deferred
// cleanup finishes before the process exits
func runProcess(cmd *cobra.Command) int {
	if cmd.Flags().Changed("batch-size") {
		cfg.Process.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}
	if cmd.Flags().Changed("requests-per-minute") {
		rpm, _ := cmd.Flags().GetInt("requests-per-minute")
		cfg.UseThroughput(rpm)
	}
	if cmd.Flags().Changed("min-wait") {
		wait, _ := cmd.Flags().GetDuration("min-wait")
		cfg.UseSpacing(wait)
	}
	if cmd.Flags().Changed("max-failures") {
		cfg.Process.MaxConsecutiveFailures, _ = cmd.Flags().GetInt("max-failures")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Set it in the environment or in a .env file\n")
		return 1
	}

	rules, err := ai.LoadRules(cfg.AI.RulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Logs go to a file and to the recent-entries panel, not the terminal
	logPath := filepath.Join(filepath.Dir(cfg.Database.Path), processLogName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
		return 1
	}
	defer logFile.Close()

	level, _ := logging.ParseLevel(cfg.LogLevel)
	recorder := logging.NewRecorder(logging.NewHandler(level, logFile), slog.LevelInfo, logging.DefaultRecorderSize)
	runLogger := slog.New(recorder)

	classifierCfg := cfg.ClassifierConfig(rules)
	classifierCfg.Logger = runLogger
	classifier, err := ai.New(classifierCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create classifier: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params := cfg.ProcessParams()
	mode := string(params.Rate.Mode())
	switch {
	case params.Rate.RequestsPerMinute > 0:
		mode = fmt.Sprintf("%s (%d/min)", mode, params.Rate.RequestsPerMinute)
	case params.Rate.MinWaitBetweenBatches > 0:
		mode = fmt.Sprintf("%s (%v)", mode, params.Rate.MinWaitBetweenBatches)
	}

	worker := processor.NewWorker(store, classifier, runLogger, recorder)
	snapshots, errs := worker.Run(ctx, params)

	display := newBlockWriter(os.Stdout)
	var elapsed time.Duration
	for snap := range snapshots {
		if display.tty || snap.Done {
			display.Draw(renderSnapshot(snap, classifier.Model(), mode))
		}
		elapsed = snap.Elapsed
	}
	runErr := <-errs

	fmt.Println()
	switch {
	case runErr == nil:
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Processing complete\n", green("✓"))
	case errors.Is(runErr, context.Canceled):
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s Interrupted. Finished batches were saved; run process again to continue.\n", yellow("⚠"))
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		if errors.Is(runErr, processor.ErrTooManyFailures) {
			fmt.Fprintf(os.Stderr, "All unfinished titles are pending. See %s for details.\n", logPath)
		}
		return 1
	}
	if elapsed > 0 {
		fmt.Printf("  Elapsed: %s\n", formatDuration(elapsed))
	}
	return 0
}

func init() {
	processCmd.Flags().Int("batch-size", processor.DefaultBatchSize, "Titles per classification request")
	processCmd.Flags().Int("requests-per-minute", 0, "Throughput mode: maximum requests per minute")
	processCmd.Flags().Duration("min-wait", 0, "Spacing mode: minimum delay between batches, e.g. 2s")
	processCmd.Flags().Int("max-failures", processor.DefaultMaxConsecutiveFailures,
		"Stop after this many failed batches in a row (0 = never)")
	processCmd.MarkFlagsMutuallyExclusive("requests-per-minute", "min-wait")
	rootCmd.AddCommand(processCmd)
}
