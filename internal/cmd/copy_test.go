package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestCopyCommand(t *testing.T) {
	tmpDir := t.TempDir()
	srcDir := filepath.Join(tmpDir, "src")
	destDir := filepath.Join(tmpDir, "dest")
	writeTestFile(t, filepath.Join(srcDir, "a.jpg"), "a")
	writeTestFile(t, filepath.Join(srcDir, "sub", "b.jpg"), "b")
	writeTestFile(t, filepath.Join(srcDir, "c.txt"), "c")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		t.Fatalf("Failed to create dest: %v", err)
	}

	cmd := NewCopyCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{srcDir, destDir, "--ext", "jpg", "--no-history", "--no-lock"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("copy command failed: %v", err)
	}

	for _, name := range []string{"a.jpg", "b.jpg"} {
		if _, err := os.Stat(filepath.Join(destDir, name)); err != nil {
			t.Errorf("Expected %s in destination: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(destDir, "c.txt")); err == nil {
		t.Error("c.txt should have been filtered out by --ext jpg")
	}

	if !strings.Contains(out.String(), "Copied 2 file(s)") {
		t.Errorf("Expected copy summary in output, got: %s", out.String())
	}
}

func TestCopyCommandCollisionRenaming(t *testing.T) {
	tmpDir := t.TempDir()
	srcDir := filepath.Join(tmpDir, "src")
	destDir := filepath.Join(tmpDir, "dest")
	writeTestFile(t, filepath.Join(srcDir, "photo.jpg"), "new")
	writeTestFile(t, filepath.Join(destDir, "photo.jpg"), "old")

	cmd := NewCopyCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{srcDir, destDir, "--no-history", "--no-lock"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("copy command failed: %v", err)
	}

	// Existing file untouched, conflicting copy renamed to photo0.jpg
	data, err := os.ReadFile(filepath.Join(destDir, "photo.jpg"))
	if err != nil || string(data) != "old" {
		t.Errorf("Existing destination file should be untouched, got %q, err %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "photo0.jpg")); err != nil {
		t.Errorf("Expected collision-renamed photo0.jpg: %v", err)
	}
}

func TestCopyCommandExtAndAllConflict(t *testing.T) {
	cmd := NewCopyCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"src", "dest", "--ext", "jpg", "--all"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("Expected error when both --ext and --all are given")
	}
	if !strings.Contains(err.Error(), "--ext and --all") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCopyCommandMissingDestination(t *testing.T) {
	tmpDir := t.TempDir()
	srcDir := filepath.Join(tmpDir, "src")
	writeTestFile(t, filepath.Join(srcDir, "a.jpg"), "a")

	cmd := NewCopyCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{srcDir, filepath.Join(tmpDir, "absent"), "--no-history", "--no-lock"})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for missing destination directory")
	}
}

func TestCopyCommandArgCount(t *testing.T) {
	cmd := NewCopyCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"only-one"})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error for wrong argument count")
	}
}
