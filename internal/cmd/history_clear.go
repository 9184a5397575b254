package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/history"
)

// newHistoryClearCommand creates the 'drover history clear' command
func newHistoryClearCommand() *cobra.Command {
	var yes bool
	var keepDays int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded runs",
		Long: `Delete recorded runs from the history database.

Without flags the whole history is deleted after confirmation. With
--keep-days only runs older than the given number of days are pruned.

Examples:
  # Delete everything (asks first)
  drover history clear

  # Delete without asking
  drover history clear --yes

  # Prune runs older than 30 days
  drover history clear --keep-days 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryClear(cmd.OutOrStdout(), yes, keepDays, dbPath)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "Only delete runs older than this many days (0 = delete everything)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (default: under drover home)")

	return cmd
}

// runHistoryClear executes the clear command
func runHistoryClear(out io.Writer, yes bool, keepDays int, dbPath string) error {
	if keepDays < 0 {
		return fmt.Errorf("keep-days cannot be negative: %d", keepDays)
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

	if !yes {
		if keepDays > 0 {
			fmt.Fprintf(out, "This will delete all runs older than %d day(s).\n", keepDays)
		} else {
			fmt.Fprintf(out, "WARNING: This will delete ALL run history.\n")
		}
		if !confirmAction(out) {
			fmt.Fprintf(out, "Operation cancelled.\n")
			return nil
		}
	}

	ctx := context.Background()
	var deleted int64
	if keepDays > 0 {
		deleted, err = store.Prune(ctx, keepDays)
	} else {
		deleted, err = store.Clear(ctx)
	}
	if err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}

	recordText := "run"
	if deleted != 1 {
		recordText = "runs"
	}
	fmt.Fprintf(out, "Deleted %d %s.\n", deleted, recordText)
	return nil
}

// confirmAction prompts the user for confirmation on stdin
func confirmAction(out io.Writer) bool {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Fprintf(out, "Continue? [y/N]: ")

	if !scanner.Scan() {
		return false
	}

	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}
