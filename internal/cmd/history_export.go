package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/filelock"
	"github.com/rowan/drover/internal/history"
)

// newHistoryExportCommand creates the 'drover history export' command
func newHistoryExportCommand() *cobra.Command {
	var format string
	var output string
	var planName string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export run history to JSON or CSV",
		Long: `Export recorded runs for external analysis or backup.

If no output file is specified, data is written to stdout. An output
file is written atomically (temp file plus rename).

Examples:
  # Export everything to JSON on stdout
  drover history export

  # Export one plan's steps to a CSV file
  drover history export --plan nightly-import --format csv --output runs.csv

Supported formats:
  - json: JSON array of run records
  - csv: CSV with headers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryExport(cmd.OutOrStdout(), format, output, planName, dbPath)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Export format (json|csv)")
	cmd.Flags().StringVar(&output, "output", "", "Output file path (stdout if not specified)")
	cmd.Flags().StringVar(&planName, "plan", "", "Export only runs of this plan")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (default: under drover home)")

	return cmd
}

// exportRun is the JSON shape of one exported row.
type exportRun struct {
	ID           int64  `json:"id"`
	RunID        string `json:"run_id"`
	Operation    string `json:"operation"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Detail       string `json:"detail"`
	FileCount    int    `json:"file_count"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	PlanName     string `json:"plan_name,omitempty"`
	StepNumber   int    `json:"step_number,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
	Timestamp    string `json:"timestamp"`
}

// runHistoryExport executes the export command
func runHistoryExport(out io.Writer, format, output, planName, dbPath string) error {
	if format != "json" && format != "csv" {
		return fmt.Errorf("invalid format %q: format must be 'json' or 'csv'", format)
	}

	store, err := openHistory(dbPath)
	if err != nil {
		if errors.Is(err, history.ErrNoDatabase) {
			return fmt.Errorf("no run history recorded yet")
		}
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var runs []*history.OperationRun
	if planName != "" {
		runs, err = store.RunsForPlan(ctx, planName)
	} else {
		runs, err = store.AllRuns(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case "json":
		err = exportJSON(&buf, runs)
	case "csv":
		err = exportCSV(&buf, runs)
	}
	if err != nil {
		return err
	}

	if output == "" {
		_, err = out.Write(buf.Bytes())
		return err
	}

	if err := filelock.AtomicWrite(output, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(out, "Exported %d run(s) to %s\n", len(runs), output)
	return nil
}

// exportJSON writes runs as an indented JSON array
func exportJSON(w io.Writer, runs []*history.OperationRun) error {
	// Empty slice so the output is [] rather than null
	records := make([]exportRun, 0, len(runs))
	for _, run := range runs {
		records = append(records, exportRun{
			ID:           run.ID,
			RunID:        run.RunID,
			Operation:    run.Operation,
			Source:       run.Source,
			Target:       run.Target,
			Detail:       run.Detail,
			FileCount:    run.FileCount,
			Success:      run.Success,
			ErrorMessage: run.ErrorMessage,
			PlanName:     run.PlanName,
			StepNumber:   run.StepNumber,
			DurationMS:   run.DurationMS,
			Timestamp:    run.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// exportCSV writes runs as CSV with a header row
func exportCSV(w io.Writer, runs []*history.OperationRun) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	header := []string{
		"id",
		"run_id",
		"operation",
		"source",
		"target",
		"detail",
		"file_count",
		"success",
		"error_message",
		"plan_name",
		"step_number",
		"duration_ms",
		"timestamp",
	}
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, run := range runs {
		row := []string{
			strconv.FormatInt(run.ID, 10),
			run.RunID,
			run.Operation,
			run.Source,
			run.Target,
			run.Detail,
			strconv.Itoa(run.FileCount),
			strconv.FormatBool(run.Success),
			run.ErrorMessage,
			run.PlanName,
			strconv.Itoa(run.StepNumber),
			strconv.FormatInt(run.DurationMS, 10),
			run.Timestamp.Format("2006-01-02 15:04:05"),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}
