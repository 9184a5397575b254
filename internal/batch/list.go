package batch

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Manifest modes and defaults.
const (
	// ModeSimple writes one column: the file name.
	ModeSimple = "simple"
	// ModeFull writes location, filename, size, and last_modified columns.
	ModeFull = "full"

	// DefaultManifestName is used when ListOptions leaves OutputPath unset.
	DefaultManifestName = "files_list.csv"
	// DefaultSeparator is used when ListOptions leaves Separator unset.
	DefaultSeparator = ","
)

// ListOptions configures ListFiles.
type ListOptions struct {
	// Mode selects the manifest format, ModeSimple or ModeFull
	// ("" = ModeSimple). Any other value is rejected before the output file
	// is touched.
	Mode string
	// OutputPath is the manifest file to create or truncate
	// ("" = DefaultManifestName).
	OutputPath string
	// Separator joins the fields of each line ("" = DefaultSeparator).
	Separator string
	// Logger receives progress messages (nil = silent).
	Logger Logger
}

// ListFiles writes a delimited manifest of dir's immediate regular files.
// The manifest starts with a header line determined by the mode, then one
// line per file in directory enumeration order; directories are skipped.
// Every line ends with \n. In full mode the last_modified field is the
// modification time in integer seconds since the Unix epoch.
//
// The output file is truncated if it exists and created otherwise, and is
// closed on every exit path. Returns the number of data rows written.
func ListFiles(dir string, opts ListOptions) (count int, err error) {
	log := orNoop(opts.Logger)

	mode := opts.Mode
	if mode == "" {
		mode = ModeSimple
	}
	if mode != ModeSimple && mode != ModeFull {
		return 0, &UnsupportedModeError{Mode: mode}
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = DefaultManifestName
	}
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create manifest: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close manifest: %w", cerr)
		}
	}()

	var header string
	if mode == ModeSimple {
		header = "file_name"
	} else {
		header = strings.Join([]string{"location", "filename", "size", "last_modified"}, sep)
	}
	if _, err = fmt.Fprintf(out, "%s\n", header); err != nil {
		return 0, fmt.Errorf("failed to write manifest header: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		var line string
		if mode == ModeSimple {
			line = entry.Name()
		} else {
			info, ierr := entry.Info()
			if ierr != nil {
				err = fmt.Errorf("failed to stat %s: %w", entry.Name(), ierr)
				return count, err
			}
			line = strings.Join([]string{
				dir,
				entry.Name(),
				strconv.FormatInt(info.Size(), 10),
				strconv.FormatInt(info.ModTime().Unix(), 10),
			}, sep)
		}

		if _, err = fmt.Fprintf(out, "%s\n", line); err != nil {
			return count, fmt.Errorf("failed to write manifest row: %w", err)
		}
		count++
	}

	log.LogInfo(fmt.Sprintf("Listed %d file(s) from %s to %s", count, dir, outputPath))
	return count, nil
}
