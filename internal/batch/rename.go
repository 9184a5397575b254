package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPadding is the zero-pad width used when RenameOptions leaves
// Padding unset.
const DefaultPadding = 5

// RenameOptions configures RenameSequential.
type RenameOptions struct {
	// Padding is the zero-pad width for sequence numbers (0 = DefaultPadding).
	// Numbers wider than the padding are printed in full.
	Padding int
	// StartNum is the first sequence number assigned.
	StartNum int
	// Logger receives progress messages (nil = silent).
	Logger Logger
}

// RenameSequential renames every regular file in dir (immediate entries only,
// not recursive) to stem_NNNNN.ext, keeping each file's original extension.
// Sequence numbers start at StartNum and advance only for files; directories
// and other non-file entries are skipped without consuming a number.
//
// No collision checking is performed: a pre-existing file whose name matches
// a generated name can be overwritten, and a not-yet-visited file can be
// renamed twice, depending on enumeration order. Callers accept that risk;
// choose a stem that no existing file shares.
//
// Returns the number of renames performed. The first rename failure aborts
// processing; files renamed before the failure stay renamed.
func RenameSequential(dir, stem string, opts RenameOptions) (int, error) {
	log := orNoop(opts.Logger)

	if stem == "" {
		return 0, errors.New("stem must not be empty")
	}
	if opts.Padding < 0 {
		return 0, fmt.Errorf("padding must not be negative: %d", opts.Padding)
	}
	if opts.StartNum < 0 {
		return 0, fmt.Errorf("start number must not be negative: %d", opts.StartNum)
	}

	padding := opts.Padding
	if padding == 0 {
		padding = DefaultPadding
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list directory: %w", err)
	}

	seq := opts.StartNum
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		newName := fmt.Sprintf("%s_%0*d%s", stem, padding, seq, ext)

		oldPath := filepath.Join(dir, entry.Name())
		newPath := filepath.Join(dir, newName)
		if err := os.Rename(oldPath, newPath); err != nil {
			return seq - opts.StartNum, fmt.Errorf("failed to rename %s: %w", entry.Name(), err)
		}

		log.LogDebug(fmt.Sprintf("renamed %s -> %s", entry.Name(), newName))
		seq++
	}

	count := seq - opts.StartNum
	log.LogInfo(fmt.Sprintf("Renamed %d file(s) in %s", count, dir))
	return count, nil
}
