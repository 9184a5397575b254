package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/batch"
	"github.com/rowan/drover/internal/history"
)

// NewRenameCommand creates the rename command
func NewRenameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <dir> <stem>",
		Short: "Rename a directory's files to stem_NNNNN.ext",
		Long: `Rename every regular file in the directory (immediate entries only,
not recursive) to stem_NNNNN.ext, keeping each file's original extension.
Subdirectories are skipped and do not consume a sequence number.

WARNING: no collision checking is performed. A pre-existing file whose
name matches a generated name can be overwritten, and a not-yet-visited
file can be renamed twice, depending on enumeration order. Choose a stem
that no existing file shares.

Examples:
  # holiday_00000.jpg, holiday_00001.png, ...
  drover rename ./photos holiday

  # img_010.jpg, img_011.jpg, ...
  drover rename ./photos img --padding 3 --start 10`,
		Args: cobra.ExactArgs(2),
		RunE: runRename,
	}

	cmd.Flags().Int("padding", 0, "Zero-pad width for sequence numbers (0 = configured default)")
	cmd.Flags().Int("start", 0, "First sequence number")
	cmd.Flags().Bool("no-lock", false, "Skip locking the directory")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")

	return cmd
}

// runRename implements the rename command logic
func runRename(cmd *cobra.Command, args []string) error {
	dir, stem := args[0], args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := consoleLoggerFor(cmd, cfg)

	padding, _ := cmd.Flags().GetInt("padding")
	if padding == 0 {
		padding = cfg.DefaultPadding
	}
	startNum, _ := cmd.Flags().GetInt("start")

	release, err := lockDirectory(cmd, dir)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	count, renameErr := batch.RenameSequential(dir, stem, batch.RenameOptions{
		Padding:  padding,
		StartNum: startNum,
		Logger:   log,
	})

	run := &history.OperationRun{
		Operation:  "rename",
		Source:     dir,
		Target:     stem,
		Detail:     renameDetail(padding, startNum),
		FileCount:  count,
		Success:    renameErr == nil,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if renameErr != nil {
		run.ErrorMessage = renameErr.Error()
	}
	recordDirectRun(cfg, run, log)

	return renameErr
}

// renameDetail renders the resolved rename arguments for history rows.
func renameDetail(padding, start int) string {
	return fmt.Sprintf("padding=%d start=%d", padding, start)
}
