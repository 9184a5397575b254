package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/filelock"
)

// defaultConfigYAML is the scaffold written by drover init. It mirrors
// config.DefaultConfig with every knob spelled out.
const defaultConfigYAML = `# Drover configuration
log_level: info
log_dir: .drover/logs
color: auto

# Zero-pad width used by rename when --padding is not given
default_padding: 5

# Field separator and mode used by list when flags are not given
default_separator: ","
default_list_mode: simple

history:
  enabled: true
  # db_path: /custom/path/runs.db
  keep_runs_days: 90

watch:
  debounce: 500ms

copy:
  max_probes: 100000
`

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a .drover/config.yaml in the current directory",
		Long: `Create .drover/config.yaml with the default settings spelled out.

The file is written atomically and never overwritten unless --force is
given.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	cmd.Flags().String("dir", ".", "Directory to initialize")

	return cmd
}

// runInit implements the init command logic
func runInit(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	force, _ := cmd.Flags().GetBool("force")

	configPath := filepath.Join(dir, ".drover", "config.yaml")

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	if err := filelock.AtomicWrite(configPath, []byte(defaultConfigYAML)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
	return nil
}
