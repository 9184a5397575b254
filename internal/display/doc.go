// Package display provides terminal output helpers for the drover CLI:
// plan-loading progress indicators, formatted warnings, and plan file name
// checks used when loading plans from directories.
//
// All functions write to an io.Writer so commands and tests can redirect
// output. Colors are plain ANSI escape codes; callers that disabled color
// simply avoid these helpers.
package display
