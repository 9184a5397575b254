package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <plan-file-or-directory>...",
		Short: "Validate one or more plan files or directories",
		Long: `Parse and validate plan files, checking for:
  - Step numbers unique and running 1..n with no gaps
  - Known operations (copy, rename, list)
  - Required fields per operation
  - Sensible padding, start, and mode values

Supports the same input modes as run:
  - Single file: drover validate plan.md
  - Single directory: drover validate plans/nightly/ (numbered or plan-* files)
  - Multiple files: drover validate plan-01.md plan-02.yaml

Exit code: 0 if valid, 1 if errors found`,
		Args:         cobra.MinimumNArgs(1),
		RunE:         validateCommand,
		SilenceUsage: true,
	}

	return cmd
}

// validateCommand implements the validate command logic
func validateCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	p, err := loadPlan(cmd, args)
	if err != nil {
		fmt.Fprintf(out, "✗ Failed to parse plan\n")
		fmt.Fprintf(out, "  Error: %v\n", err)
		return fmt.Errorf("parse error: %w", err)
	}

	fmt.Fprintf(out, "✓ Parsed %d step(s)\n", len(p.Steps))

	errs := p.ValidateAll()
	if len(errs) == 0 {
		fmt.Fprintf(out, "✓ All steps valid\n")
		fmt.Fprintf(out, "\n✓ Plan is valid!\n\n")
		printStepTable(out, p)
		return nil
	}

	fmt.Fprintf(out, "\n✗ Validation failed\n")
	for _, verr := range errs {
		fmt.Fprintf(out, "  ✗ %v\n", verr)
	}
	fmt.Fprintf(out, "\nFound %d validation error(s)!\n", len(errs))

	return fmt.Errorf("validation failed with %d error(s)", len(errs))
}
