package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Extension returns the text after the last dot of a file name, without the
// dot, or "" when the name has no dot. A leading-dot name like ".bashrc" has
// extension "bashrc". Any directory components of path are ignored.
func Extension(path string) string {
	ext := filepath.Ext(filepath.Base(path))
	if ext == "" {
		return ""
	}
	return ext[1:]
}

// SplitExt splits a file name into the part before the last dot and the
// extension including its dot. Names without a dot return the whole name as
// base and an empty extension.
func SplitExt(name string) (base, ext string) {
	ext = filepath.Ext(name)
	base = name[:len(name)-len(ext)]
	return base, ext
}

// Exists reports whether any entry (file, directory, symlink) occupies path.
// It uses Lstat so dangling symlinks still count as occupied.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// CopyFileOptions controls CopyFile behavior.
type CopyFileOptions struct {
	// Exclusive fails if the destination already exists instead of truncating it
	Exclusive bool
	// PreserveMode carries the source permission bits to the destination
	PreserveMode bool
	// PreserveTimes carries the source modification time to the destination.
	// Failures here are ignored; timestamps are not load-bearing.
	PreserveTimes bool
}

// CopyFile copies the full contents of src to dst. With nil options the
// destination is created or truncated with mode 0644. The destination
// directory must already exist.
func CopyFile(src, dst string, opts *CopyFileOptions) error {
	if opts == nil {
		opts = &CopyFileOptions{}
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}
	if srcInfo.IsDir() {
		return fmt.Errorf("source is a directory: %s", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if opts.Exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	mode := os.FileMode(0644)
	if opts.PreserveMode {
		mode = srcInfo.Mode().Perm()
	}

	out, err := os.OpenFile(dst, flags, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}

	if opts.PreserveMode {
		// The umask may have clipped the create mode
		if err := os.Chmod(dst, srcInfo.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to preserve file mode: %w", err)
		}
	}

	if opts.PreserveTimes {
		os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	}

	return nil
}
