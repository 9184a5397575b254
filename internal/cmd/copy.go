package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/batch"
	"github.com/rowan/drover/internal/history"
)

// NewCopyCommand creates the copy command
func NewCopyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <source-dir> <dest-dir>",
		Short: "Copy matching files from a tree into a flat directory",
		Long: `Walk the source directory recursively and copy every regular file
matching the extension filter into the destination directory, flattening
the tree. The destination directory must already exist.

An existing destination file is never overwritten: when a name is taken,
a sequence number is appended to the base name (photo.jpg, photo0.jpg,
photo1.jpg, ...) until a free name is found.

Examples:
  # Copy every .jpg under ./camera into ./flat
  drover copy ./camera ./flat --ext jpg

  # Copy everything
  drover copy ./camera ./flat

  # Copy only files that have no extension
  drover copy ./camera ./flat --ext ""`,
		Args: cobra.ExactArgs(2),
		RunE: runCopy,
	}

	cmd.Flags().String("ext", "", "Only copy files with this extension, no leading dot")
	cmd.Flags().Bool("all", false, "Copy every file regardless of extension (the default when --ext is absent)")
	cmd.Flags().Int("max-probes", 0, "Maximum collision probes per file (0 = configured default)")
	cmd.Flags().Bool("no-lock", false, "Skip locking the destination directory")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	return cmd
}

// runCopy implements the copy command logic
func runCopy(cmd *cobra.Command, args []string) error {
	srcDir, destDir := args[0], args[1]

	if cmd.Flags().Changed("ext") && cmd.Flags().Changed("all") {
		return fmt.Errorf("cannot use both --ext and --all")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := consoleLoggerFor(cmd, cfg)

	// --ext "" is a real filter (extensionless files only), so presence is
	// what matters, not the value
	var ext *string
	if cmd.Flags().Changed("ext") {
		v, _ := cmd.Flags().GetString("ext")
		ext = &v
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

	start := time.Now()
	count, copyErr := batch.CopyRecursively(srcDir, destDir, batch.CopyOptions{
		Extension: ext,
		MaxProbes: maxProbes,
		Logger:    log,
	})

	run := &history.OperationRun{
		Operation:  "copy",
		Source:     srcDir,
		Target:     destDir,
		Detail:     "extension=" + extensionLabel(ext),
		FileCount:  count,
		Success:    copyErr == nil,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if copyErr != nil {
		run.ErrorMessage = copyErr.Error()
	}
	recordDirectRun(cfg, run, log)

	return copyErr
}
