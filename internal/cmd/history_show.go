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

// NewHistoryShowCommand creates the 'drover history show' command
func NewHistoryShowCommand() *cobra.Command {
	var limit int
	var planName string
	var runID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show recent recorded runs",
		Long: `Display recent recorded runs, newest first.

Examples:
  # The last 20 runs
  drover history show

  # The last 5 runs
  drover history show --limit 5

  # Every step of one plan
  drover history show --plan nightly-import

  # Every row of one invocation
  drover history show --run-id 6f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd.OutOrStdout(), limit, planName, runID, dbPath)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&planName, "plan", "", "Show only runs of this plan")
	cmd.Flags().StringVar(&runID, "run-id", "", "Show only rows of this run id")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (default: under drover home)")

	return cmd
}

// runHistoryShow executes the show command
func runHistoryShow(out io.Writer, limit int, planName, runID, dbPath string) error {
	if planName != "" && runID != "" {
		return fmt.Errorf("cannot use both --plan and --run-id")
	}

	store, err := openHistory(dbPath)
	if err != nil {
		if errors.Is(err, history.ErrNoDatabase) {
			fmt.Fprintf(out, "No run history recorded yet.\n")
			return nil
		}
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var runs []*history.OperationRun
	switch {
	case planName != "":
		runs, err = store.RunsForPlan(ctx, planName)
	case runID != "":
		runs, err = store.RunsByRunID(ctx, runID)
	default:
		runs, err = store.RecentRuns(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("query run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No matching runs.\n")
		return nil
	}

	for _, run := range runs {
		printRun(out, run)
	}
	return nil
}

// printRun renders one history row as two lines.
func printRun(out io.Writer, run *history.OperationRun) {
	status := color.New(color.FgGreen).Sprint("ok")
	if !run.Success {
		status = color.New(color.FgRed).Sprint("FAILED")
	}

	fmt.Fprintf(out, "%s  %-6s %-7s %d file(s)  %s -> %s\n",
		run.Timestamp.Format("2006-01-02 15:04:05"),
		run.Operation, status, run.FileCount, run.Source, run.Target)

	detail := run.Detail
	if run.PlanName != "" {
		detail = fmt.Sprintf("plan=%s step=%d %s", run.PlanName, run.StepNumber, detail)
	}
	if run.ErrorMessage != "" {
		detail = fmt.Sprintf("%s error=%q", detail, run.ErrorMessage)
	}
	fmt.Fprintf(out, "    %s\n", detail)
}
