package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/batch"
	"github.com/rowan/drover/internal/history"
)

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <dir>",
		Short: "Write a delimited manifest of a directory's files",
		Long: `List the directory's immediate regular files (not recursive) into a
delimited text manifest. Subdirectories are skipped.

Modes:
  simple  one column: file_name
  full    four columns: location, filename, size, last_modified
          (last_modified is integer seconds since the Unix epoch)

The output file is truncated if it exists and created otherwise.

Examples:
  drover list ./photos
  drover list ./photos --mode full --output manifest.tsv --sep "\t"`,
		Args: cobra.ExactArgs(1),
		RunE: runList,
	}

	cmd.Flags().String("mode", "", "Manifest mode: simple or full (default from config)")
	cmd.Flags().String("output", batch.DefaultManifestName, "Manifest file path")
	cmd.Flags().String("sep", "", "Field separator (default from config)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	return cmd
}

// runList implements the list command logic
func runList(cmd *cobra.Command, args []string) error {
	dir := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := consoleLoggerFor(cmd, cfg)

	mode, _ := cmd.Flags().GetString("mode")
	if mode == "" {
		mode = cfg.DefaultListMode
	}
	output, _ := cmd.Flags().GetString("output")
	sep, _ := cmd.Flags().GetString("sep")
	if sep == "" {
		sep = cfg.DefaultSeparator
	}
	// Shells pass --sep "\t" as a literal backslash-t
	if sep == `\t` {
		sep = "\t"
	}

	start := time.Now()
	count, listErr := batch.ListFiles(dir, batch.ListOptions{
		Mode:       mode,
		OutputPath: output,
		Separator:  sep,
		Logger:     log,
	})

	run := &history.OperationRun{
		Operation:  "list",
		Source:     dir,
		Target:     output,
		Detail:     "mode=" + mode,
		FileCount:  count,
		Success:    listErr == nil,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if listErr != nil {
		run.ErrorMessage = listErr.Error()
	}
	recordDirectRun(cfg, run, log)

	return listErr
}
