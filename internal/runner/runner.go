// Package runner executes drover plans. Steps run strictly sequentially in
// plan order; the first failing step halts the run and the remaining steps
// are skipped. Each executed step can be recorded in the run history store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rowan/drover/internal/batch"
	"github.com/rowan/drover/internal/config"
	"github.com/rowan/drover/internal/filelock"
	"github.com/rowan/drover/internal/history"
	"github.com/rowan/drover/internal/plan"
)

// DefaultLockTimeout bounds how long a step waits for a directory that
// another drover process has locked.
const DefaultLockTimeout = 10 * time.Second

// StepResult records the outcome of one executed plan step.
type StepResult struct {
	Step      plan.Step
	FileCount int
	// Output is the resolved manifest path for list steps, empty otherwise
	Output   string
	Error    error
	Duration time.Duration
}

// Succeeded reports whether the step completed without error.
func (r StepResult) Succeeded() bool {
	return r.Error == nil
}

// RunResult aggregates the outcome of a full plan run.
type RunResult struct {
	PlanName   string
	RunID      string
	TotalSteps int
	Completed  int
	Failed     int
	Duration   time.Duration
	Steps      []StepResult
	// FailedStep points at the step that halted the run, nil when all
	// steps completed
	FailedStep *StepResult
}

// Skipped returns the number of steps never reached because an earlier step
// failed or the run was interrupted.
func (r *RunResult) Skipped() int {
	return r.TotalSteps - r.Completed - r.Failed
}

// Logger defines the interface for logging runner progress and results.
type Logger interface {
	LogStepStart(step plan.Step)
	LogStepComplete(result StepResult)
	LogStepFail(result StepResult)
	LogSummary(result RunResult)
}

// Runner executes a plan's steps in order, taking a directory lock around
// each mutating step and recording each step in the history store when one
// is attached.
type Runner struct {
	cfg         *config.Config
	logger      Logger
	opLogger    batch.Logger
	store       *history.Store
	noLock      bool
	lockTimeout time.Duration
}

// NewRunner creates a new Runner. The logger parameter is optional and can
// be nil. A nil config falls back to the defaults.
func NewRunner(cfg *config.Config, logger Logger) *Runner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Runner{
		cfg:         cfg,
		logger:      logger,
		lockTimeout: DefaultLockTimeout,
	}
}

// SetOperationLogger attaches a logger that receives the per-file progress
// messages emitted by the batch operations themselves.
func (r *Runner) SetOperationLogger(log batch.Logger) {
	r.opLogger = log
}

// SetHistoryStore attaches a history store. Each executed step is recorded
// as one run row. Without a store nothing is recorded.
func (r *Runner) SetHistoryStore(store *history.Store) {
	r.store = store
}

// SetNoLock disables the per-step directory locks.
func (r *Runner) SetNoLock(noLock bool) {
	r.noLock = noLock
}

// SetLockTimeout overrides how long a step waits for a held directory lock.
func (r *Runner) SetLockTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.lockTimeout = timeout
	}
}

// Run executes the plan with graceful shutdown support. It handles
// SIGINT/SIGTERM, runs steps in order, halts at the first failure, and
// aggregates the step outcomes into a RunResult. An interrupt lets the
// in-flight step finish; the steps after it are skipped.
//
// The returned RunResult is non-nil even when the run failed or was
// interrupted, so callers can always report what happened.
func (r *Runner) Run(ctx context.Context, p *plan.Plan) (*RunResult, error) {
	if p == nil {
		return nil, fmt.Errorf("plan cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	// Set up context with cancellation for signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nReceived interrupt signal, finishing current step...")
			cancel()
		case <-ctx.Done():
			// Context already canceled
		}
	}()

	result := &RunResult{
		PlanName:   p.Name,
		RunID:      uuid.NewString(),
		TotalSteps: len(p.Steps),
	}

	startTime := time.Now()
	var runErr error

	for i := range p.Steps {
		step := p.Steps[i]

		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if r.logger != nil {
			r.logger.LogStepStart(step)
		}

		stepStart := time.Now()
		stepResult := r.executeStep(p, step)
		stepResult.Duration = time.Since(stepStart)
		result.Steps = append(result.Steps, stepResult)

		r.recordStep(result.RunID, p, stepResult)

		if stepResult.Error != nil {
			result.Failed++
			result.FailedStep = &result.Steps[len(result.Steps)-1]
			if r.logger != nil {
				r.logger.LogStepFail(stepResult)
			}
			runErr = fmt.Errorf("step %d (%s): %w", step.Number, step.Name, stepResult.Error)
			break
		}

		result.Completed++
		if r.logger != nil {
			r.logger.LogStepComplete(stepResult)
		}
	}

	result.Duration = time.Since(startTime)

	if r.logger != nil {
		r.logger.LogSummary(*result)
	}

	return result, runErr
}

// executeStep dispatches one step to its batch operation, holding the
// directory lock for the duration of mutating operations.
func (r *Runner) executeStep(p *plan.Plan, step plan.Step) StepResult {
	result := StepResult{Step: step}

	switch step.Operation {
	case plan.OpCopy:
		release, err := r.lockDir(step.Destination)
		if err != nil {
			result.Error = err
			return result
		}
		defer release()

		count, err := batch.CopyRecursively(step.Source, step.Destination, batch.CopyOptions{
			Extension: step.Extension,
			MaxProbes: r.cfg.Copy.MaxProbes,
			Logger:    r.opLogger,
		})
		result.FileCount = count
		result.Error = err

	case plan.OpRename:
		release, err := r.lockDir(step.Directory)
		if err != nil {
			result.Error = err
			return result
		}
		defer release()

		count, err := batch.RenameSequential(step.Directory, step.Stem, batch.RenameOptions{
			Padding:  r.effectivePadding(p, step),
			StartNum: step.Start,
			Logger:   r.opLogger,
		})
		result.FileCount = count
		result.Error = err

	case plan.OpList:
		// Listing reads the directory and writes only the manifest, so no
		// directory lock is taken.
		output := step.Output
		if output == "" {
			output = batch.DefaultManifestName
		}

		count, err := batch.ListFiles(step.Directory, batch.ListOptions{
			Mode:       r.effectiveMode(p, step),
			OutputPath: output,
			Separator:  r.effectiveSeparator(p, step),
			Logger:     r.opLogger,
		})
		result.FileCount = count
		result.Output = output
		result.Error = err

	default:
		// Validate rejects unknown operations before Run gets here
		result.Error = fmt.Errorf("unknown operation %q", step.Operation)
	}

	return result
}

// lockDir acquires the lock guarding dir and returns a release function that
// unlocks and removes the lock file. With locking disabled the release
// function is a no-op.
func (r *Runner) lockDir(dir string) (func(), error) {
	if r.noLock {
		return func() {}, nil
	}

	lock := filelock.NewDirLock(dir)
	if err := lock.LockWithTimeout(r.lockTimeout); err != nil {
		if errors.Is(err, filelock.ErrLockTimeout) {
			return nil, fmt.Errorf("directory %s is in use by another drover process: %w", dir, filelock.ErrLockTimeout)
		}
		return nil, err
	}

	return func() {
		lock.Unlock()
		os.Remove(lock.Path())
	}, nil
}

// recordStep writes one history row for an executed step. Recording is best
// effort: a history failure never fails the run. A fresh context is used so
// the row still lands when the run context was canceled mid-run.
func (r *Runner) recordStep(runID string, p *plan.Plan, sr StepResult) {
	if r.store == nil {
		return
	}

	run := &history.OperationRun{
		RunID:      runID,
		Operation:  sr.Step.Operation,
		Source:     stepSource(sr.Step),
		Target:     stepTarget(sr.Step, sr.Output),
		Detail:     r.stepDetail(p, sr.Step),
		FileCount:  sr.FileCount,
		Success:    sr.Error == nil,
		PlanName:   p.Name,
		StepNumber: sr.Step.Number,
		DurationMS: sr.Duration.Milliseconds(),
	}
	if sr.Error != nil {
		run.ErrorMessage = sr.Error.Error()
	}

	if err := r.store.RecordRun(context.Background(), run); err != nil && r.opLogger != nil {
		r.opLogger.LogDebug(fmt.Sprintf("failed to record run history: %v", err))
	}
}

// effectivePadding resolves a rename step's pad width: step value, then plan
// defaults, then the configured default. Zero means unset at every level.
func (r *Runner) effectivePadding(p *plan.Plan, step plan.Step) int {
	if step.Padding > 0 {
		return step.Padding
	}
	if p.Defaults.Padding > 0 {
		return p.Defaults.Padding
	}
	return r.cfg.DefaultPadding
}

// effectiveSeparator resolves a list step's field separator the same way.
func (r *Runner) effectiveSeparator(p *plan.Plan, step plan.Step) string {
	if step.Separator != "" {
		return step.Separator
	}
	if p.Defaults.Separator != "" {
		return p.Defaults.Separator
	}
	return r.cfg.DefaultSeparator
}

// effectiveMode resolves a list step's manifest mode the same way.
func (r *Runner) effectiveMode(p *plan.Plan, step plan.Step) string {
	if step.Mode != "" {
		return step.Mode
	}
	if p.Defaults.ListMode != "" {
		return p.Defaults.ListMode
	}
	return r.cfg.DefaultListMode
}

// stepSource returns the directory a step reads from.
func stepSource(step plan.Step) string {
	if step.Operation == plan.OpCopy {
		return step.Source
	}
	return step.Directory
}

// stepTarget returns what a step produces: the destination directory for
// copy, the stem for rename, the manifest path for list.
func stepTarget(step plan.Step, output string) string {
	switch step.Operation {
	case plan.OpCopy:
		return step.Destination
	case plan.OpRename:
		return step.Stem
	case plan.OpList:
		return output
	}
	return ""
}

// stepDetail summarizes the arguments a step actually ran with, after
// resolving plan and config defaults.
func (r *Runner) stepDetail(p *plan.Plan, step plan.Step) string {
	switch step.Operation {
	case plan.OpCopy:
		return "extension=" + extensionLabel(step.Extension)
	case plan.OpRename:
		return fmt.Sprintf("padding=%d start=%d", r.effectivePadding(p, step), step.Start)
	case plan.OpList:
		return fmt.Sprintf("mode=%s separator=%q", r.effectiveMode(p, step), r.effectiveSeparator(p, step))
	}
	return ""
}

// extensionLabel renders a copy step's extension filter for display.
func extensionLabel(ext *string) string {
	switch {
	case ext == nil:
		return "all"
	case *ext == "":
		return "none"
	default:
		return *ext
	}
}
