package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/history"
)

// NewHistoryStatsCommand creates the 'drover history stats' command
func NewHistoryStatsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate run statistics",
		Long: `Display aggregate statistics over all recorded runs:
  - Total runs and success rate
  - Total files handled
  - Per-operation breakdown
  - First and last recorded run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryStats(cmd.OutOrStdout(), dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (default: under drover home)")

	return cmd
}

// runHistoryStats executes the stats command
func runHistoryStats(out io.Writer, dbPath string) error {
	store, err := openHistory(dbPath)
	if err != nil {
		if errors.Is(err, history.ErrNoDatabase) {
			fmt.Fprintf(out, "No run history recorded yet.\n")
			return nil
		}
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}

	if stats.TotalRuns == 0 {
		fmt.Fprintf(out, "No run history recorded yet.\n")
		return nil
	}

	printHistoryStats(out, stats)
	return nil
}

// printHistoryStats formats and prints the statistics
func printHistoryStats(w io.Writer, stats *history.Stats) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	cyan.Fprintf(w, "\n=== Run History ===\n\n")

	cyan.Fprintf(w, "Overall:\n")
	fmt.Fprintf(w, "  Total runs: %d\n", stats.TotalRuns)
	fmt.Fprintf(w, "  Succeeded: ")
	green.Fprintf(w, "%d\n", stats.Succeeded)
	fmt.Fprintf(w, "  Failed: ")
	red.Fprintf(w, "%d\n", stats.Failed)

	rate := float64(stats.Succeeded) / float64(stats.TotalRuns) * 100
	fmt.Fprintf(w, "  Success rate: ")
	switch {
	case rate >= 90:
		green.Fprintf(w, "%.1f%%\n", rate)
	case rate >= 50:
		yellow.Fprintf(w, "%.1f%%\n", rate)
	default:
		red.Fprintf(w, "%.1f%%\n", rate)
	}
	fmt.Fprintf(w, "  Total files handled: %d\n", stats.TotalFiles)

	if len(stats.Operations) > 0 {
		fmt.Fprintf(w, "\n")
		cyan.Fprintf(w, "By operation:\n")
		for _, op := range stats.Operations {
			fmt.Fprintf(w, "  %-7s %d run(s), ", op.Operation, op.Runs)
			green.Fprintf(w, "%d ok", op.Succeeded)
			fmt.Fprintf(w, " / ")
			red.Fprintf(w, "%d failed", op.Failed)
			fmt.Fprintf(w, ", %d file(s)\n", op.Files)
		}
	}

	if !stats.FirstRun.IsZero() {
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "  First run: %s\n", stats.FirstRun.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  Last run:  %s\n", stats.LastRun.Format("2006-01-02 15:04:05"))
	}

	fmt.Fprintf(w, "\n")
}
