package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/config"
	"github.com/rowan/drover/internal/display"
	"github.com/rowan/drover/internal/history"
	"github.com/rowan/drover/internal/logger"
	"github.com/rowan/drover/internal/plan"
	"github.com/rowan/drover/internal/runner"
)

// stepLogger implements runner.Logger for console output, advancing a
// progress bar as steps complete on multi-step plans.
type stepLogger struct {
	writer io.Writer
	bar    *logger.ProgressBar
}

// LogStepStart logs the start of a step
func (l *stepLogger) LogStepStart(step plan.Step) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(l.writer, "[%s] Step %d: %s (%s)\n", timestamp, step.Number, step.Name, step.Operation)
}

// LogStepComplete logs the completion of a step
func (l *stepLogger) LogStepComplete(result runner.StepResult) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(l.writer, "[%s] Step %d done: %d file(s) in %s\n",
		timestamp, result.Step.Number, result.FileCount, logger.FormatDuration(result.Duration))
	l.advance()
}

// LogStepFail logs a failed step
func (l *stepLogger) LogStepFail(result runner.StepResult) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Fprintf(l.writer, "[%s] Step %d FAILED: %v\n", timestamp, result.Step.Number, result.Error)
	l.advance()
}

// LogSummary logs the run summary
func (l *stepLogger) LogSummary(result runner.RunResult) {
	fmt.Fprintf(l.writer, "\n")
	fmt.Fprintf(l.writer, "Run Summary:\n")
	fmt.Fprintf(l.writer, "  Total steps: %d\n", result.TotalSteps)
	fmt.Fprintf(l.writer, "  Completed: %d\n", result.Completed)
	fmt.Fprintf(l.writer, "  Failed: %d\n", result.Failed)
	if skipped := result.Skipped(); skipped > 0 {
		fmt.Fprintf(l.writer, "  Skipped: %d\n", skipped)
	}
	fmt.Fprintf(l.writer, "  Total duration: %s\n", logger.FormatDuration(result.Duration))
	if line := logger.FormatRunMetrics(runMetrics(result)); line != "" {
		fmt.Fprintf(l.writer, "  %s\n", line)
	}

	if result.FailedStep != nil {
		fmt.Fprintf(l.writer, "\nFailed step:\n")
		fmt.Fprintf(l.writer, "  - Step %d: %s (%v)\n",
			result.FailedStep.Step.Number, result.FailedStep.Step.Name, result.FailedStep.Error)
	}
}

// runMetrics tallies per-operation file counts for the summary line.
func runMetrics(result runner.RunResult) logger.RunMetrics {
	m := logger.RunMetrics{
		StepsRun:    result.Completed,
		StepsFailed: result.Failed,
	}
	for _, sr := range result.Steps {
		if sr.Error != nil {
			continue
		}
		switch sr.Step.Operation {
		case plan.OpCopy:
			m.FilesCopied += sr.FileCount
		case plan.OpRename:
			m.FilesMoved += sr.FileCount
		case plan.OpList:
			m.RowsListed += sr.FileCount
		}
	}
	return m
}

// advance moves the progress bar one step and redraws it
func (l *stepLogger) advance() {
	if l.bar == nil {
		return
	}
	l.bar.Increment()
	l.bar.RenderTo(l.writer)
	l.bar.Finish(l.writer)
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <plan-file-or-directory>...",
		Short: "Execute a batch plan",
		Long: `Execute a batch plan: an ordered list of copy, rename, and list steps.

The run command parses the specified plan file(s) or directory (Markdown
or YAML format) and executes the steps strictly in order, halting at the
first failure. Steps already executed stay executed.

For a directory, numbered files (1-*.md, 2-*.yaml, ...) are loaded and
merged. For multiple files, only files matching plan-*.md or plan-*.yaml
are loaded and merged into a single plan.

Configuration is loaded from .drover/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  # Single file execution
  drover run plan.md

  # Directory execution (loads numbered files: 1-*.md, 2-*.yaml, etc.)
  drover run plans/nightly-import/

  # Multi-file execution (filters plan-*.md and plan-*.yaml files)
  drover run plan-01-intake.md plan-02-archive.yaml

  # Other options
  drover run --dry-run plan.md        # Show the steps without executing
  drover run --no-lock plan.md        # Skip per-step directory locks
  drover run --no-history plan.md     # Do not record steps in history`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().Bool("dry-run", false, "Parse and validate the plan, print the steps, execute nothing")
	cmd.Flags().Bool("no-lock", false, "Skip the per-step directory locks")
	cmd.Flags().Bool("no-history", false, "Do not record steps in the history database")
	cmd.Flags().String("log-dir", "", "Directory for run log files (default from config)")
	cmd.Flags().Duration("lock-timeout", 0, "How long to wait for a locked directory (0 = default)")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p, err := loadPlan(cmd, args)
	if err != nil {
		return err
	}

	if len(p.Steps) == 0 {
		fmt.Fprintf(out, "Plan is valid but contains no steps.\n")
		return nil
	}

	if errs := p.ValidateAll(); len(errs) > 0 {
		for _, verr := range errs {
			fmt.Fprintf(out, "  ✗ %v\n", verr)
		}
		return fmt.Errorf("plan validation failed with %d error(s)", len(errs))
	}

	fmt.Fprintf(out, "\nPlan: %s\n", p.Name)
	fmt.Fprintf(out, "  Steps: %d\n", len(p.Steps))

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		fmt.Fprintf(out, "\nDry-run mode: plan is valid and ready for execution.\n\n")
		printStepTable(out, p)
		return nil
	}

	fmt.Fprintf(out, "\nStarting run...\n\n")

	logLevel := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logLevel = "debug"
	}

	// Per-file progress from the batch operations goes to console and file
	consoleLog := consoleLoggerFor(cmd, cfg)

	logDir, _ := cmd.Flags().GetString("log-dir")
	if logDir == "" {
		logDir = cfg.LogDir
	}
	fileLog, err := logger.NewFileLoggerWithDirAndLevel(logDir, logLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()

	steps := &stepLogger{writer: out}
	if len(p.Steps) > 1 {
		noColor, _ := cmd.Flags().GetBool("no-color")
		steps.bar = logger.NewProgressBar(len(p.Steps), 30, cfg.Color != "never" && !noColor)
		steps.bar.SetPrefix("steps ")
	}

	r := runner.NewRunner(cfg, steps)
	r.SetOperationLogger(&fanoutLogger{console: consoleLog, file: fileLog})
	if noLock, _ := cmd.Flags().GetBool("no-lock"); noLock {
		r.SetNoLock(true)
	}
	if lockTimeout, _ := cmd.Flags().GetDuration("lock-timeout"); lockTimeout > 0 {
		r.SetLockTimeout(lockTimeout)
	}

	if cfg.History.Enabled {
		store, err := openRunHistory(cfg)
		if err != nil {
			consoleLog.LogWarn(fmt.Sprintf("history disabled for this run: %v", err))
		} else {
			defer store.Close()
			r.SetHistoryStore(store)
		}
	}

	result, err := r.Run(context.Background(), p)
	if err != nil {
		if result != nil && errors.Is(err, context.Canceled) {
			return fmt.Errorf("run interrupted after %d of %d step(s)", result.Completed, result.TotalSteps)
		}
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Fprintf(out, "\nRun completed successfully.\n")
	fmt.Fprintf(out, "Logs written to: %s\n", logDir)
	return nil
}

// loadPlan resolves the run/validate arguments into a single merged plan.
// A single file parses directly; a single directory loads its numbered
// files; multiple arguments are filtered to plan-* files and merged.
func loadPlan(cmd *cobra.Command, args []string) (*plan.Plan, error) {
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil || !info.IsDir() {
			// Single file (or a bad path ParseFile will complain about)
			display.DisplaySingleFile(out, args[0])
			return plan.ParseFile(args[0])
		}
		if plan.IsSplitPlan(args[0]) {
			display.DisplaySingleFile(out, args[0])
			return plan.ParseDirectory(args[0])
		}
		warnIgnoredPlanFiles(out, args[0])
	}

	planFiles, err := plan.FilterPlanFiles(args)
	if err != nil {
		return nil, fmt.Errorf("failed to filter plan files: %w", err)
	}

	if len(planFiles) == 1 {
		display.DisplaySingleFile(out, planFiles[0])
		return plan.ParseFile(planFiles[0])
	}

	progress := display.NewProgressIndicator(out, len(planFiles))
	progress.Start()

	plans := make([]*plan.Plan, 0, len(planFiles))
	for _, pf := range planFiles {
		progress.Step(pf)
		p, err := plan.ParseFile(pf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", pf, err)
		}
		plans = append(plans, p)
	}
	progress.Complete()

	return plan.MergePlans(plans...)
}

// warnIgnoredPlanFiles warns when a plan directory holds markdown or YAML
// files the directory loader will not pick up.
func warnIgnoredPlanFiles(out io.Writer, dir string) {
	ignored, err := display.FindIgnoredPlanFiles(dir)
	if err != nil || len(ignored) == 0 {
		return
	}
	display.WarnIgnoredFiles(ignored).Display(out)
}

// printStepTable prints one line per step for dry runs and validation.
func printStepTable(out io.Writer, p *plan.Plan) {
	for _, step := range p.Steps {
		fmt.Fprintf(out, "  Step %d: %s\n", step.Number, step.Name)
		switch step.Operation {
		case plan.OpCopy:
			fmt.Fprintf(out, "    copy %s -> %s (extension=%s)\n", step.Source, step.Destination, extensionLabel(step.Extension))
		case plan.OpRename:
			fmt.Fprintf(out, "    rename %s to stem %q\n", step.Directory, step.Stem)
		case plan.OpList:
			output := step.Output
			if output == "" {
				output = "files_list.csv"
			}
			fmt.Fprintf(out, "    list %s -> %s\n", step.Directory, output)
		}
	}
}

// openRunHistory opens the history store for a plan run.
func openRunHistory(cfg *config.Config) (*history.Store, error) {
	dbPath, err := historyDBPath(cfg)
	if err != nil {
		return nil, err
	}
	return history.NewStore(dbPath)
}

// fanoutLogger forwards batch operation messages to console and file.
type fanoutLogger struct {
	console *logger.ConsoleLogger
	file    *logger.FileLogger
}

func (f *fanoutLogger) LogDebug(message string) {
	f.console.LogDebug(message)
	f.file.LogDebug(message)
}

func (f *fanoutLogger) LogInfo(message string) {
	f.console.LogInfo(message)
	f.file.LogInfo(message)
}
