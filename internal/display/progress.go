package display

import (
	"fmt"
	"io"
	"path/filepath"
)

// ProgressIndicator prints one cyan line per plan file as a multi-file
// plan loads, then a green completion line.
type ProgressIndicator struct {
	writer  io.Writer
	total   int
	current int
}

// NewProgressIndicator creates a progress indicator for total files
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer: w,
		total:  total,
	}
}

// Start displays the header line
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Loading plan files:\n")
}

// Step displays progress for the next file: [N/Total] filename
func (p *ProgressIndicator) Step(filename string) {
	p.current++
	fmt.Fprintf(p.writer, "\x1b[36m  [%d/%d] %s\x1b[0m\n", p.current, p.total, filepath.Base(filename))
}

// Complete displays the success line with a green checkmark
func (p *ProgressIndicator) Complete() {
	fmt.Fprintf(p.writer, "\x1b[32m✓\x1b[0m Loaded %d plan files\n", p.total)
}

// DisplaySingleFile shows the loading message for a single plan source
func DisplaySingleFile(w io.Writer, filename string) {
	fmt.Fprintf(w, "Loading plan from %s...\n", filename)
}
