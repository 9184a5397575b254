package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for drover
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drover",
		Short: "Batch file herding utilities",
		Long: `Drover herds files in batches: it copies matching files out of a
directory tree into a flat destination, renames a directory's files to a
zero-padded numbering scheme, and writes delimited file manifests.

Operations run one-off (drover copy|rename|list), continuously
(drover watch), or as multi-step plans (drover run plan.md). Runs are
recorded in a local history database (drover history).

Configuration is loaded from .drover/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Show debug-level progress output")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only show warnings and errors")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Path to config file (default: .drover/config.yaml)")

	// Add subcommands
	cmd.AddCommand(NewCopyCommand())
	cmd.AddCommand(NewRenameCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
