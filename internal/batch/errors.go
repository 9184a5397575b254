package batch

import "fmt"

// ProbeLimitError reports that collision probing exhausted its attempt bound
// without finding a free destination name.
type ProbeLimitError struct {
	Name     string // source file name whose destination could not be resolved
	Dir      string // destination directory that was probed
	Attempts int    // number of candidate names tried
}

// Error implements the error interface for ProbeLimitError.
func (e *ProbeLimitError) Error() string {
	return fmt.Sprintf("could not resolve destination name for %q in %s after %d attempts", e.Name, e.Dir, e.Attempts)
}

// UnsupportedModeError reports a manifest mode that is neither "simple" nor "full".
type UnsupportedModeError struct {
	Mode string
}

// Error implements the error interface for UnsupportedModeError.
func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported mode %q (valid modes: %s, %s)", e.Mode, ModeSimple, ModeFull)
}
