// Package watch implements drover's watch mode: a recursive file-system
// watcher over a source tree, and a mirror service that copies each new file
// into a flat destination directory once it stops changing.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rowan/drover/internal/fileutil"
	"github.com/rowan/drover/internal/fold"
)

// Op classifies a watch event.
type Op int

const (
	// Settled indicates a file was created or written and then stayed quiet
	// for the debounce interval.
	Settled Op = iota
	// Removed indicates a watched file was deleted or renamed away.
	Removed
)

// String returns a human-readable representation of the operation
func (op Op) String() string {
	switch op {
	case Settled:
		return "settled"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a file system event for a watched file
type Event struct {
	Path      string    // Absolute path to the file
	Op        Op        // Type of operation
	Timestamp time.Time // When the event occurred
}

// DefaultDebounce is the default interval a file must stay quiet before it
// is reported as settled.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree and reports files that have settled.
// Creates and writes for the same path are coalesced: the file is reported
// once, after it has stayed quiet for the debounce interval. A file removed
// while pending is never reported as settled.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	rootDir string

	// filter is the extension filter, compared without case; hasFilter
	// distinguishes "no filter" from the empty extension
	filter    fold.String
	hasFilter bool

	mu       sync.Mutex
	debounce time.Duration
	pending  map[string]*time.Timer
	closed   bool
}

// NewWatcher creates a Watcher over rootDir and all of its subdirectories.
// ext filters events by file extension with the same semantics as
// batch.CopyOptions.Extension: nil matches everything, the empty string
// matches files without an extension.
func NewWatcher(rootDir string, ext *string) (*Watcher, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(rootDir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		rootDir = filepath.Join(home, rootDir[1:])
	}

	rootDir = filepath.Clean(rootDir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  watcher,
		events:   make(chan Event, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
		rootDir:  rootDir,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
	}
	if ext != nil {
		w.filter = fold.New(*ext)
		w.hasFilter = true
	}

	if err := w.addRecursive(rootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	go w.processEvents()

	return w, nil
}

// addRecursive adds the directory and all its subdirectories to the watcher
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// If the directory doesn't exist, that's ok - skip it
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				// Ignore permission errors for directories we can't access
				if os.IsPermission(err) {
					return nil
				}
				return err
			}
		}

		return nil
	})
}

// processEvents converts fsnotify events into settled and removed Events
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

// handleEvent processes a single fsnotify event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// New directories join the watch; their files arrive as later events
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				w.sendError(err)
			}
			return
		}
	}

	if !w.matchesFilter(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		// A burst of creates and writes for one file collapses into a
		// single settled event once the file goes quiet
		w.schedule(path)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancelPending(path)
		w.sendEvent(path, Removed)
	default:
		// Ignore chmod events
	}
}

// matchesFilter checks the file's extension against the configured filter
func (w *Watcher) matchesFilter(path string) bool {
	if !w.hasFilter {
		return true
	}
	return fold.New(fileutil.Extension(path)).EqualsFold(w.filter)
}

// schedule starts or resets the settle timer for a path
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if timer, exists := w.pending[path]; exists {
		timer.Stop()
	}

	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		w.sendEvent(path, Settled)
	})
}

// cancelPending drops the settle timer for a path, if one is running
func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[path]; exists {
		timer.Stop()
		delete(w.pending, path)
	}
}

// sendEvent sends an Event to the events channel
func (w *Watcher) sendEvent(path string, op Op) {
	event := Event{
		Path:      path,
		Op:        op,
		Timestamp: time.Now(),
	}

	select {
	case w.events <- event:
	case <-w.done:
	default:
		// Events channel full, drop the event
	}
}

// sendError sends an error to the errors channel
func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
		// Error channel full, drop the error
	}
}

// Events returns the channel for receiving file events
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel for receiving errors
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// RootDir returns the root directory being watched
func (w *Watcher) RootDir() string {
	return w.rootDir
}

// SetDebounce sets the settle interval. This should only be called before
// the watcher starts receiving events.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d > 0 {
		w.debounce = d
	}
}

// Close stops the watcher and releases resources
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true

	// Cancel all pending settle timers
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	// Signal done to stop the event processing goroutine
	close(w.done)

	// Close the underlying watcher
	return w.watcher.Close()
}
