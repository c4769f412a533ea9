package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/jobtitles/internal/types"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear ingested data or classification results",
	Long: `Reset the database.

  --type full       delete every ingested row and title
  --type processed  keep the titles but return them all to pending and
                    clear their results, so the next process run starts over

Run history is kept either way.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		value, _ := cmd.Flags().GetString("type")
		yes, _ := cmd.Flags().GetBool("yes")

		kind, err := types.ParseResetKind(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		counts, err := store.StatusCounts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		red := color.New(color.FgRed, color.Bold).SprintFunc()
		var warning string
		switch kind {
		case types.ResetFull:
			warning = fmt.Sprintf("This deletes %s rows and %s distinct titles.",
				formatCount(counts.Total), formatCount(counts.Unique.Total()))
		case types.ResetProcessed:
			warning = fmt.Sprintf("This discards results for %s classified titles.",
				formatCount(counts.Unique.Completed+counts.Unique.Processing))
		}
		fmt.Printf("%s %s\n", red("Warning:"), warning)

		if !yes {
			ok, err := confirm("Continue? [y/N] ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !ok {
				fmt.Println("Aborted")
				return
			}
		}

		n, err := store.Reset(ctx, kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Reset (%s): %s records changed\n", green("✓"), kind, formatCount(int(n)))
	},
}

// confirm asks a yes/no question on the terminal; anything but y/yes is no
func confirm(prompt string) (bool, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return false, fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func init() {
	resetCmd.Flags().String("type", string(types.ResetFull), "What to reset: full or processed")
	resetCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
