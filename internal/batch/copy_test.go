package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// recordingLogger captures messages so tests can assert on the logging sink.
type recordingLogger struct {
	debugs []string
	infos  []string
}

func (r *recordingLogger) LogDebug(message string) { r.debugs = append(r.debugs, message) }
func (r *recordingLogger) LogInfo(message string)  { r.infos = append(r.infos, message) }

// writeFiles creates relative files under dir, each holding its own name as content.
func writeFiles(t *testing.T, dir string, files []string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(f), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func destNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func strPtr(s string) *string { return &s }

func TestCopyRecursivelyFiltersByExtension(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{
		"a.txt",
		"b.TXT",
		"c.png",
		"sub/d.Txt",
		"sub/deep/e.txt",
		"sub/deep/f.md",
	})

	count, err := CopyRecursively(src, dest, CopyOptions{Extension: strPtr("txt")})
	if err != nil {
		t.Fatalf("CopyRecursively() error = %v", err)
	}

	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}

	want := []string{"a.txt", "b.TXT", "d.Txt", "e.txt"}
	if got := destNames(t, dest); !equalStrings(got, want) {
		t.Errorf("dest names = %v, want %v", got, want)
	}
}

func TestCopyRecursivelyNoFilterCopiesEverything(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{"a.txt", "noext", "sub/b.png"})

	count, err := CopyRecursively(src, dest, CopyOptions{})
	if err != nil {
		t.Fatalf("CopyRecursively() error = %v", err)
	}

	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

// TestCopyRecursivelyEmptyFilterMatchesExtensionless verifies ext "" selects
// only files without a dot
func TestCopyRecursivelyEmptyFilterMatchesExtensionless(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{"README", "notes.txt", "sub/LICENSE"})

	count, err := CopyRecursively(src, dest, CopyOptions{Extension: strPtr("")})
	if err != nil {
		t.Fatalf("CopyRecursively() error = %v", err)
	}

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	want := []string{"LICENSE", "README"}
	if got := destNames(t, dest); !equalStrings(got, want) {
		t.Errorf("dest names = %v, want %v", got, want)
	}
}

func TestCopyRecursivelyFlattensWithCollisionRenaming(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{
		"one/photo.jpg",
		"two/photo.jpg",
		"three/photo.jpg",
	})

	count, err := CopyRecursively(src, dest, CopyOptions{Extension: strPtr("jpg")})
	if err != nil {
		t.Fatalf("CopyRecursively() error = %v", err)
	}

	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	want := []string{"photo.jpg", "photo0.jpg", "photo1.jpg"}
	if got := destNames(t, dest); !equalStrings(got, want) {
		t.Errorf("dest names = %v, want %v", got, want)
	}
}

// TestCopyRecursivelyProbeSequence verifies probing continues past occupied
// sequence numbers
func TestCopyRecursivelyProbeSequence(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{"photo.jpg"})
	writeFiles(t, dest, []string{"photo.jpg", "photo0.jpg", "photo1.jpg"})

	count, err := CopyRecursively(src, dest, CopyOptions{})
	if err != nil {
		t.Fatalf("CopyRecursively() error = %v", err)
	}

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if !fileExists(filepath.Join(dest, "photo2.jpg")) {
		t.Errorf("expected photo2.jpg in dest, got %v", destNames(t, dest))
	}
}

func TestCopyRecursivelyProbeLimit(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{"photo.jpg"})
	writeFiles(t, dest, []string{"photo.jpg", "photo0.jpg", "photo1.jpg"})

	count, err := CopyRecursively(src, dest, CopyOptions{MaxProbes: 2})
	if err == nil {
		t.Fatal("expected probe limit error")
	}

	var probeErr *ProbeLimitError
	if !errors.As(err, &probeErr) {
		t.Fatalf("error type = %T, want *ProbeLimitError", err)
	}
	if probeErr.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", probeErr.Attempts)
	}
	if !strings.Contains(err.Error(), "could not resolve destination name") {
		t.Errorf("error message = %q, missing probe limit text", err.Error())
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

// TestCopyRecursivelySecondRunNeverOverwrites verifies the safety property:
// a second run adds files under new names and leaves prior copies intact
func TestCopyRecursivelySecondRunNeverOverwrites(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{"a.txt", "sub/b.txt"})

	for run := 0; run < 2; run++ {
		count, err := CopyRecursively(src, dest, CopyOptions{})
		if err != nil {
			t.Fatalf("run %d error = %v", run, err)
		}
		if count != 2 {
			t.Errorf("run %d count = %d, want 2", run, count)
		}
	}

	names := destNames(t, dest)
	if len(names) != 4 {
		t.Fatalf("dest has %d files %v, want 4", len(names), names)
	}

	// Originals keep their source contents
	for name, wantContent := range map[string]string{"a.txt": "a.txt", "b.txt": "sub/b.txt"} {
		got, err := os.ReadFile(filepath.Join(dest, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != wantContent {
			t.Errorf("%s content = %q, want %q", name, got, wantContent)
		}
	}
}

func TestCopyRecursivelyEmptyTree(t *testing.T) {
	count, err := CopyRecursively(t.TempDir(), t.TempDir(), CopyOptions{})
	if err != nil {
		t.Fatalf("CopyRecursively() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestCopyRecursivelyMissingSource(t *testing.T) {
	_, err := CopyRecursively(filepath.Join(t.TempDir(), "absent"), t.TempDir(), CopyOptions{})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyRecursivelySourceIsFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := CopyRecursively(file, t.TempDir(), CopyOptions{})
	if err == nil {
		t.Fatal("expected error when source is a file")
	}
}

func TestCopyRecursivelyLogsCount(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{"a.txt", "b.txt"})

	rec := &recordingLogger{}
	if _, err := CopyRecursively(src, dest, CopyOptions{Logger: rec}); err != nil {
		t.Fatalf("CopyRecursively() error = %v", err)
	}

	if len(rec.infos) != 1 || !strings.Contains(rec.infos[0], "Copied 2 file(s)") {
		t.Errorf("info log = %v, want copied-count message", rec.infos)
	}
	if len(rec.debugs) != 2 {
		t.Errorf("debug logs = %d, want 2 per-file messages", len(rec.debugs))
	}
}

func TestCopyFileInto(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, []string{"note.md"})
	writeFiles(t, dest, []string{"note.md"})

	got, err := CopyFileInto(filepath.Join(src, "note.md"), dest, CopyOptions{})
	if err != nil {
		t.Fatalf("CopyFileInto() error = %v", err)
	}

	if filepath.Base(got) != "note0.md" {
		t.Errorf("resolved name = %s, want note0.md", filepath.Base(got))
	}
	content, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "note.md" {
		t.Errorf("content = %q, want %q", content, "note.md")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// TestResolveDestinationProbesAnyEntryKind verifies directories occupy names too
func TestResolveDestinationProbesAnyEntryKind(t *testing.T) {
	dest := t.TempDir()
	if err := os.Mkdir(filepath.Join(dest, "report.pdf"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := resolveDestination(dest, "report.pdf", DefaultMaxProbes)
	if err != nil {
		t.Fatalf("resolveDestination() error = %v", err)
	}
	if filepath.Base(got) != "report0.pdf" {
		t.Errorf("resolved = %s, want report0.pdf", filepath.Base(got))
	}
}

// TestResolveDestinationExtensionless verifies sequence placement without a dot
func TestResolveDestinationExtensionless(t *testing.T) {
	dest := t.TempDir()
	writeFiles(t, dest, []string{"README", "README0"})

	got, err := resolveDestination(dest, "README", DefaultMaxProbes)
	if err != nil {
		t.Fatalf("resolveDestination() error = %v", err)
	}
	if filepath.Base(got) != "README1" {
		t.Errorf("resolved = %s, want README1", filepath.Base(got))
	}
}

// Example-shaped sanity check that copy counts exactly what lands in dest
func TestCopyCountMatchesDestination(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	var files []string
	for i := 0; i < 7; i++ {
		files = append(files, fmt.Sprintf("dir%d/file%d.dat", i%3, i))
	}
	writeFiles(t, src, files)

	count, err := CopyRecursively(src, dest, CopyOptions{Extension: strPtr("dat")})
	if err != nil {
		t.Fatalf("CopyRecursively() error = %v", err)
	}

	if got := len(destNames(t, dest)); got != count {
		t.Errorf("dest holds %d files but count = %d", got, count)
	}
}
