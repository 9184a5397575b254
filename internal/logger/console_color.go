package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for different metric types.
// Green: success/positive metrics
// Red: failure/error metrics
// Yellow: warning/threshold metrics
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats a single metric with colorized label and value.
// Label is colored cyan, value is colored white.
// Format: "label: value"
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	labelColored := scheme.label.Sprint(label)
	valueColored := scheme.value.Sprintf("%v", value)
	return fmt.Sprintf("%s: %s", labelColored, valueColored)
}

// RunMetrics summarizes a plan run for one-line display.
type RunMetrics struct {
	StepsRun    int
	StepsFailed int
	FilesCopied int
	FilesMoved  int
	RowsListed  int
}

// FormatRunMetrics formats plan run metrics with color coding.
// Returns empty string if no metric is non-zero.
// Format: "steps: N, copied: N, renamed: N, listed: N, failed: N"
// Counts are labeled cyan; failures are colored red.
// Colors are automatically disabled when output is not a TTY via fatih/color's built-in detection.
func FormatRunMetrics(m RunMetrics) string {
	scheme := newColorScheme()
	var parts []string

	if m.StepsRun > 0 {
		labelColored := scheme.success.Sprint("steps")
		valueColored := scheme.value.Sprintf("%d", m.StepsRun)
		parts = append(parts, fmt.Sprintf("%s: %s", labelColored, valueColored))
	}

	if m.FilesCopied > 0 {
		parts = append(parts, formatColorizedMetric("copied", m.FilesCopied, scheme))
	}

	if m.FilesMoved > 0 {
		parts = append(parts, formatColorizedMetric("renamed", m.FilesMoved, scheme))
	}

	if m.RowsListed > 0 {
		parts = append(parts, formatColorizedMetric("listed", m.RowsListed, scheme))
	}

	if m.StepsFailed > 0 {
		labelColored := scheme.fail.Sprint("failed")
		valueColored := scheme.fail.Sprintf("%d", m.StepsFailed)
		parts = append(parts, fmt.Sprintf("%s: %s", labelColored, valueColored))
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, ", ")
}
