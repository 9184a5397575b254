package display

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rowan/drover/internal/fileutil"
)

// planExtensions are the file extensions the plan loaders accept.
var planExtensions = []string{".md", ".markdown", ".yaml", ".yml"}

var (
	numberedRegex   = regexp.MustCompile(`^\d+-.+`)
	planPrefixRegex = regexp.MustCompile(`^plan-.+`)
)

// IsNumberedFile reports whether filename is a numbered plan file
// (1-intake.md, 02-archive.yaml, ...), the naming a plan directory's
// files must follow to be loaded in order.
func IsNumberedFile(filename string) bool {
	if !hasPlanExtension(filename) {
		return false
	}
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return numberedRegex.MatchString(stem)
}

// IsPlanFile reports whether filename matches the plan-* naming used when
// multiple files or directories are passed on the command line.
func IsPlanFile(filename string) bool {
	if !hasPlanExtension(filename) {
		return false
	}
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return planPrefixRegex.MatchString(stem)
}

// FindIgnoredPlanFiles scans a directory (immediate entries only) and
// returns the basenames of markdown and YAML files that neither the
// numbered-directory loader nor the plan-* filter would pick up. Commands
// warn about these so a typoed plan file does not silently vanish.
func FindIgnoredPlanFiles(dirPath string) ([]string, error) {
	result, err := fileutil.ScanDirectory(dirPath, fileutil.ScanOptions{
		Extensions: planExtensions,
		Recursive:  false,
	})
	if err != nil {
		return nil, err
	}

	var ignored []string
	for _, absPath := range result.Files {
		name := filepath.Base(absPath)
		if !IsNumberedFile(name) && !IsPlanFile(name) {
			ignored = append(ignored, name)
		}
	}
	return ignored, nil
}

// hasPlanExtension checks for a lowercase plan file extension.
func hasPlanExtension(filename string) bool {
	ext := filepath.Ext(filename)
	for _, valid := range planExtensions {
		if ext == valid {
			return true
		}
	}
	return false
}
