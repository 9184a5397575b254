package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/config"
	"github.com/rowan/drover/internal/history"
)

// NewHistoryCommand creates the 'drover history' parent command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Run history commands",
		Long: `Commands for viewing and managing the run history database.

Every recorded copy, rename, list, and watch operation is one row; plan
runs record one row per step, grouped by a shared run id.`,
	}

	// Add subcommands
	cmd.AddCommand(NewHistoryStatsCommand())
	cmd.AddCommand(NewHistoryShowCommand())
	cmd.AddCommand(newHistoryClearCommand())
	cmd.AddCommand(newHistoryExportCommand())

	return cmd
}

// openHistory opens the history database for the read-side history
// commands without creating one as a side effect. dbPathOverride is the
// --db-path flag (testing and unusual layouts).
func openHistory(dbPathOverride string) (*history.Store, error) {
	dbPath := dbPathOverride
	if dbPath == "" {
		var err error
		dbPath, err = config.GetHistoryDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve history database path: %w", err)
		}
	}
	return history.OpenExisting(dbPath)
}
