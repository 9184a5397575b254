package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rowan/drover/internal/history"
)

type runOutcome struct {
	count int
	err   error
}

// startMirror runs the mirror in the background and waits for the watcher to
// come up before the test mutates the tree.
func startMirror(t *testing.T, m *Mirror) (context.CancelFunc, chan runOutcome) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan runOutcome, 1)
	go func() {
		count, err := m.Run(ctx)
		done <- runOutcome{count: count, err: err}
	}()

	time.Sleep(100 * time.Millisecond)
	return cancel, done
}

func waitForFile(t *testing.T, path string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("file %s never appeared", path)
}

func TestMirrorCopiesSettledFiles(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	m := NewMirror(src, dest, MirrorOptions{
		Extension: strPtr("txt"),
		Debounce:  50 * time.Millisecond,
	})
	cancel, done := startMirror(t, m)
	defer cancel()

	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "b.png"), []byte("b"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitForFile(t, filepath.Join(dest, "a.txt"))

	cancel()
	res := <-done

	if !errors.Is(res.err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", res.err)
	}
	if res.count != 1 {
		t.Errorf("count = %d, want 1", res.count)
	}
	if _, err := os.Stat(filepath.Join(dest, "b.png")); !os.IsNotExist(err) {
		t.Error("b.png should not have been copied")
	}
}

func TestMirrorFlattensSubdirectories(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m := NewMirror(src, dest, MirrorOptions{Debounce: 50 * time.Millisecond})
	cancel, done := startMirror(t, m)
	defer cancel()

	if err := os.WriteFile(filepath.Join(src, "sub", "deep.txt"), []byte("d"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitForFile(t, filepath.Join(dest, "deep.txt"))

	cancel()
	res := <-done
	if res.count != 1 {
		t.Errorf("count = %d, want 1", res.count)
	}
}

func TestMirrorProbesCollisions(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	// Destination already holds a same-named file
	if err := os.WriteFile(filepath.Join(dest, "a.txt"), []byte("old"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := NewMirror(src, dest, MirrorOptions{Debounce: 50 * time.Millisecond})
	cancel, done := startMirror(t, m)
	defer cancel()

	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("new"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitForFile(t, filepath.Join(dest, "a0.txt"))

	cancel()
	<-done

	data, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "old" {
		t.Error("existing destination file was overwritten")
	}
}

func TestMirrorRecordsHistory(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	m := NewMirror(src, dest, MirrorOptions{
		Debounce: 50 * time.Millisecond,
		Store:    store,
	})
	cancel, done := startMirror(t, m)
	defer cancel()

	if err := os.WriteFile(filepath.Join(src, "x.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "y.txt"), []byte("y"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitForFile(t, filepath.Join(dest, "x.txt"))
	waitForFile(t, filepath.Join(dest, "y.txt"))

	cancel()
	<-done

	runs, err := store.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}

	for _, run := range runs {
		if run.Operation != "watch" {
			t.Errorf("Operation = %q, want %q", run.Operation, "watch")
		}
		if !run.Success {
			t.Errorf("Success = false for %s", run.Source)
		}
		if run.FileCount != 1 {
			t.Errorf("FileCount = %d, want 1", run.FileCount)
		}
		if run.Detail != "extension=all" {
			t.Errorf("Detail = %q, want %q", run.Detail, "extension=all")
		}
	}

	if runs[0].RunID != runs[1].RunID {
		t.Error("rows from one watch session should share a run id")
	}
}

func TestMirrorMissingDestination(t *testing.T) {
	m := NewMirror(t.TempDir(), filepath.Join(t.TempDir(), "missing"), MirrorOptions{})

	if _, err := m.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing destination")
	}
}
