// Package batch implements drover's three batch file operations: recursive
// extension-filtered copying with collision-avoiding renaming, sequential
// renaming to a zero-padded numbering scheme, and delimited manifest
// generation.
//
// All three operations are synchronous, single-pass, and stateless: they take
// no locks and keep no state between calls. Callers that need to guard a
// directory against concurrent mutation coordinate externally, e.g. with the
// filelock package. Any file-system error aborts the remainder of the
// operation; work already done stays done (no rollback).
package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rowan/drover/internal/fileutil"
	"github.com/rowan/drover/internal/fold"
)

// DefaultMaxProbes bounds collision probing per file. A destination directory
// holding a hundred thousand same-named files is pathological; failing beats
// spinning forever.
const DefaultMaxProbes = 100000

// CopyOptions configures CopyRecursively.
type CopyOptions struct {
	// Extension filters copied files by extension, compared without case,
	// without a leading dot. nil copies everything; the empty string matches
	// files that have no extension.
	Extension *string
	// MaxProbes bounds collision probing per file (0 = DefaultMaxProbes).
	MaxProbes int
	// Logger receives progress messages (nil = silent).
	Logger Logger
}

// CopyRecursively walks srcDir and all of its subdirectories and copies every
// regular file matching the extension filter into destDir, flattening the
// tree. destDir must already exist; it is never created here.
//
// When the destination name is taken, candidates with a sequence number
// appended to the base name (photo.jpg, photo0.jpg, photo1.jpg, ...) are
// probed until a free name is found, re-checking existence on each attempt.
// An existing destination file is never overwritten.
//
// Returns the number of files copied. The first error aborts the remaining
// traversal and is returned alongside the count copied so far.
func CopyRecursively(srcDir, destDir string, opts CopyOptions) (int, error) {
	log := orNoop(opts.Logger)

	info, err := os.Stat(srcDir)
	if err != nil {
		return 0, fmt.Errorf("failed to access source directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("source is not a directory: %s", srcDir)
	}

	maxProbes := opts.MaxProbes
	if maxProbes <= 0 {
		maxProbes = DefaultMaxProbes
	}

	var filter fold.String
	hasFilter := opts.Extension != nil
	if hasFilter {
		filter = fold.New(*opts.Extension)
	}

	copied := 0
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if hasFilter && !fold.New(fileutil.Extension(d.Name())).EqualsFold(filter) {
			return nil
		}

		destPath, err := resolveDestination(destDir, d.Name(), maxProbes)
		if err != nil {
			return err
		}

		// O_EXCL so a name grabbed between the probe and the copy fails
		// instead of clobbering
		copyOpts := &fileutil.CopyFileOptions{
			Exclusive:     true,
			PreserveMode:  true,
			PreserveTimes: true,
		}
		if err := fileutil.CopyFile(path, destPath, copyOpts); err != nil {
			return err
		}

		copied++
		log.LogDebug(fmt.Sprintf("copied %s -> %s", path, destPath))
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copy aborted: %w", err)
	}

	log.LogInfo(fmt.Sprintf("Copied %d file(s) from %s to %s", copied, srcDir, destDir))
	return copied, nil
}

// resolveDestination returns destDir/name, or the first free sequence-numbered
// variant when that name is taken. Existence is re-checked on every candidate;
// any entry kind occupies a name, not just regular files.
func resolveDestination(destDir, name string, maxProbes int) (string, error) {
	candidate := filepath.Join(destDir, name)
	if !fileutil.Exists(candidate) {
		return candidate, nil
	}

	base, ext := fileutil.SplitExt(name)
	for seq := 0; seq < maxProbes; seq++ {
		candidate = filepath.Join(destDir, fmt.Sprintf("%s%d%s", base, seq, ext))
		if !fileutil.Exists(candidate) {
			return candidate, nil
		}
	}

	return "", &ProbeLimitError{Name: name, Dir: destDir, Attempts: maxProbes}
}

// CopyFileInto copies a single file into destDir under the same
// collision-avoidance policy as CopyRecursively and returns the resolved
// destination path. Watch mode uses it for files appearing after the initial
// tree walk.
func CopyFileInto(srcPath, destDir string, opts CopyOptions) (string, error) {
	log := orNoop(opts.Logger)

	maxProbes := opts.MaxProbes
	if maxProbes <= 0 {
		maxProbes = DefaultMaxProbes
	}

	destPath, err := resolveDestination(destDir, filepath.Base(srcPath), maxProbes)
	if err != nil {
		return "", err
	}

	copyOpts := &fileutil.CopyFileOptions{
		Exclusive:     true,
		PreserveMode:  true,
		PreserveTimes: true,
	}
	if err := fileutil.CopyFile(srcPath, destPath, copyOpts); err != nil {
		return "", err
	}

	log.LogDebug(fmt.Sprintf("copied %s -> %s", srcPath, destPath))
	return destPath, nil
}
