package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/history"
	"github.com/rowan/drover/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <source-dir> <dest-dir>",
		Short: "Continuously copy new matching files into a flat directory",
		Long: `Watch the source directory tree and copy every new regular file
matching the extension filter into the destination directory as it
settles, under the same flattening and collision-avoidance policy as
drover copy. New subdirectories are watched as they appear.

A file is copied once it has stayed quiet for the debounce interval, so
editors' write bursts coalesce into a single copy.

Runs until interrupted (Ctrl-C).

Examples:
  drover watch ./inbox ./archive --ext pdf
  drover watch ./inbox ./archive --debounce 2s`,
		Args: cobra.ExactArgs(2),
		RunE: runWatch,
	}

	cmd.Flags().String("ext", "", "Only copy files with this extension, no leading dot")
	cmd.Flags().Duration("debounce", 0, "How long a file must stay quiet before it is copied (0 = configured default)")
	cmd.Flags().Int("max-probes", 0, "Maximum collision probes per file (0 = configured default)")
	cmd.Flags().Bool("no-lock", false, "Skip locking the destination directory")
	cmd.Flags().Bool("no-history", false, "Do not record copied files in the history database")

	return cmd
}

// runWatch implements the watch command logic
func runWatch(cmd *cobra.Command, args []string) error {
	srcDir, destDir := args[0], args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := consoleLoggerFor(cmd, cfg)

	var ext *string
	if cmd.Flags().Changed("ext") {
		v, _ := cmd.Flags().GetString("ext")
		ext = &v
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	if debounce < 0 {
		return fmt.Errorf("debounce cannot be negative: %v", debounce)
	}
	if debounce == 0 {
		debounce = cfg.Watch.Debounce
	}

	maxProbes, _ := cmd.Flags().GetInt("max-probes")
	if maxProbes <= 0 {
		maxProbes = cfg.Copy.MaxProbes
	}

	release, err := lockDirectory(cmd, destDir)
	if err != nil {
		return err
	}
	defer release()

	opts := watch.MirrorOptions{
		Extension: ext,
		MaxProbes: maxProbes,
		Debounce:  debounce,
		Logger:    log,
	}

	if cfg.History.Enabled {
		dbPath, err := historyDBPath(cfg)
		if err != nil {
			log.LogWarn(fmt.Sprintf("history disabled for this watch: %v", err))
		} else {
			store, err := history.NewStore(dbPath)
			if err != nil {
				log.LogWarn(fmt.Sprintf("history disabled for this watch: %v", err))
			} else {
				defer store.Close()
				opts.Store = store
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	copied, err := watch.NewMirror(srcDir, destDir, opts).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Copied %d file(s)\n", copied)
	return nil
}
