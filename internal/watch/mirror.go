package watch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rowan/drover/internal/batch"
	"github.com/rowan/drover/internal/history"
)

// Logger receives mirror progress and failure messages. The logger package's
// ConsoleLogger, FileLogger, and NoOpLogger all satisfy it.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// noopLogger backs nil option loggers.
type noopLogger struct{}

func (noopLogger) LogDebug(message string) {}
func (noopLogger) LogInfo(message string)  {}
func (noopLogger) LogWarn(message string)  {}

func orNoop(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// MirrorOptions configures NewMirror.
type MirrorOptions struct {
	// Extension filters mirrored files with the same semantics as
	// batch.CopyOptions.Extension: nil copies everything, the empty string
	// matches files without an extension.
	Extension *string
	// MaxProbes bounds collision probing per file (0 = batch default).
	MaxProbes int
	// Debounce is how long a file must stay quiet before it is copied
	// (0 = DefaultDebounce).
	Debounce time.Duration
	// Logger receives progress messages (nil = silent).
	Logger Logger
	// Store records one history row per copied file (nil = no recording).
	Store *history.Store
}

// Mirror copies files appearing under a source tree into a flat destination
// directory as they settle, under the same collision-avoidance policy as the
// copy operation.
type Mirror struct {
	srcDir  string
	destDir string
	opts    MirrorOptions
}

// NewMirror creates a Mirror from srcDir into destDir.
func NewMirror(srcDir, destDir string, opts MirrorOptions) *Mirror {
	return &Mirror{
		srcDir:  srcDir,
		destDir: destDir,
		opts:    opts,
	}
}

// Run watches the source tree until ctx is canceled. Each file that settles
// is copied into the destination; copy failures are logged and recorded but
// never stop the watch. Returns the number of files copied and ctx.Err()
// when the run ended by cancellation.
func (m *Mirror) Run(ctx context.Context) (int, error) {
	log := orNoop(m.opts.Logger)

	info, err := os.Stat(m.destDir)
	if err != nil {
		return 0, fmt.Errorf("failed to access destination directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("destination is not a directory: %s", m.destDir)
	}

	watcher, err := NewWatcher(m.srcDir, m.opts.Extension)
	if err != nil {
		return 0, fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	if m.opts.Debounce > 0 {
		watcher.SetDebounce(m.opts.Debounce)
	}

	// One run id groups every row this watch session records
	runID := uuid.NewString()

	log.LogInfo(fmt.Sprintf("Watching %s, copying into %s", watcher.RootDir(), m.destDir))

	copied := 0
	for {
		select {
		case <-ctx.Done():
			log.LogInfo(fmt.Sprintf("Watch stopped, %d file(s) copied", copied))
			return copied, ctx.Err()

		case ev, ok := <-watcher.Events():
			if !ok {
				return copied, nil
			}
			if ev.Op != Settled {
				continue
			}
			if m.copyOne(runID, ev.Path, log) {
				copied++
			}

		case werr, ok := <-watcher.Errors():
			if !ok {
				return copied, nil
			}
			log.LogWarn(fmt.Sprintf("watch error: %v", werr))
		}
	}
}

// copyOne copies one settled file into the destination and records the
// outcome. Returns true when a file was actually copied.
func (m *Mirror) copyOne(runID, path string, log Logger) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		// Gone again, or not a plain file; nothing to copy
		return false
	}

	destPath, err := batch.CopyFileInto(path, m.destDir, batch.CopyOptions{
		MaxProbes: m.opts.MaxProbes,
		Logger:    log,
	})
	m.record(runID, path, destPath, err, log)
	if err != nil {
		log.LogWarn(fmt.Sprintf("failed to copy %s: %v", path, err))
		return false
	}

	log.LogInfo(fmt.Sprintf("Copied %s -> %s", path, destPath))
	return true
}

// record writes one history row for a copy attempt. Best effort: history
// failures never stop the watch.
func (m *Mirror) record(runID, srcPath, destPath string, copyErr error, log Logger) {
	if m.opts.Store == nil {
		return
	}

	run := &history.OperationRun{
		RunID:     runID,
		Operation: "watch",
		Source:    srcPath,
		Target:    destPath,
		Detail:    "extension=" + extensionLabel(m.opts.Extension),
		FileCount: 1,
		Success:   copyErr == nil,
	}
	if copyErr != nil {
		run.FileCount = 0
		run.ErrorMessage = copyErr.Error()
	}

	if err := m.opts.Store.RecordRun(context.Background(), run); err != nil {
		log.LogDebug(fmt.Sprintf("failed to record watch history: %v", err))
	}
}

// extensionLabel renders the extension filter for display.
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
