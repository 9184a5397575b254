package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rowan/drover/internal/history"
)

// seedHistoryDB creates a history database with one successful copy run
// and one failed rename run, returning its path.
func seedHistoryDB(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store, err := history.NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	runs := []*history.OperationRun{
		{
			Operation:  "copy",
			Source:     "/data/inbox",
			Target:     "/data/sorted",
			Detail:     "extension=jpg",
			FileCount:  12,
			Success:    true,
			DurationMS: 40,
		},
		{
			Operation:    "rename",
			Source:       "/data/sorted",
			Target:       "photo",
			Detail:       "padding=5 start=0",
			FileCount:    3,
			Success:      false,
			ErrorMessage: "permission denied",
			PlanName:     "nightly-import",
			StepNumber:   2,
			DurationMS:   11,
		},
	}
	for _, run := range runs {
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatalf("Failed to record run: %v", err)
		}
	}
	return dbPath
}

func TestHistoryShow(t *testing.T) {
	dbPath := seedHistoryDB(t)

	var out bytes.Buffer
	if err := runHistoryShow(&out, 20, "", "", dbPath); err != nil {
		t.Fatalf("history show failed: %v", err)
	}

	outputStr := out.String()
	for _, want := range []string{
		"copy", "/data/inbox", "12 file(s)",
		"rename", "plan=nightly-import step=2",
		`error="permission denied"`,
	} {
		if !strings.Contains(outputStr, want) {
			t.Errorf("Output missing %q:\n%s", want, outputStr)
		}
	}
}

func TestHistoryShowPlanFilter(t *testing.T) {
	dbPath := seedHistoryDB(t)

	var out bytes.Buffer
	if err := runHistoryShow(&out, 20, "nightly-import", "", dbPath); err != nil {
		t.Fatalf("history show --plan failed: %v", err)
	}

	outputStr := out.String()
	if !strings.Contains(outputStr, "rename") {
		t.Errorf("Expected the plan's rename step:\n%s", outputStr)
	}
	if strings.Contains(outputStr, "/data/inbox") {
		t.Errorf("Direct copy run should be filtered out:\n%s", outputStr)
	}
}

func TestHistoryShowPlanAndRunIDConflict(t *testing.T) {
	var out bytes.Buffer
	err := runHistoryShow(&out, 20, "some-plan", "some-run", "unused")
	if err == nil {
		t.Fatal("Expected error when both --plan and --run-id are given")
	}
	if !strings.Contains(err.Error(), "--plan and --run-id") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestHistoryShowNoDatabase(t *testing.T) {
	var out bytes.Buffer
	err := runHistoryShow(&out, 20, "", "", filepath.Join(t.TempDir(), "absent.db"))
	if err != nil {
		t.Fatalf("Missing database should not be an error: %v", err)
	}
	if !strings.Contains(out.String(), "No run history recorded yet.") {
		t.Errorf("Expected empty-history message, got: %s", out.String())
	}
}

func TestHistoryStats(t *testing.T) {
	dbPath := seedHistoryDB(t)

	var out bytes.Buffer
	if err := runHistoryStats(&out, dbPath); err != nil {
		t.Fatalf("history stats failed: %v", err)
	}

	outputStr := out.String()
	for _, want := range []string{
		"=== Run History ===",
		"Total runs: 2",
		"Success rate: ",
		"Total files handled: 15",
		"By operation:",
	} {
		if !strings.Contains(outputStr, want) {
			t.Errorf("Output missing %q:\n%s", want, outputStr)
		}
	}
}

func TestHistoryStatsNoDatabase(t *testing.T) {
	var out bytes.Buffer
	if err := runHistoryStats(&out, filepath.Join(t.TempDir(), "absent.db")); err != nil {
		t.Fatalf("Missing database should not be an error: %v", err)
	}
	if !strings.Contains(out.String(), "No run history recorded yet.") {
		t.Errorf("Expected empty-history message, got: %s", out.String())
	}
}

func TestHistoryClearAll(t *testing.T) {
	dbPath := seedHistoryDB(t)

	var out bytes.Buffer
	if err := runHistoryClear(&out, true, 0, dbPath); err != nil {
		t.Fatalf("history clear failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted 2 runs.") {
		t.Errorf("Expected deletion count, got: %s", out.String())
	}

	store, err := history.OpenExisting(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store.Close()
	runs, err := store.AllRuns(context.Background())
	if err != nil {
		t.Fatalf("Failed to query runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected empty history after clear, got %d runs", len(runs))
	}
}

func TestHistoryClearKeepDays(t *testing.T) {
	dbPath := seedHistoryDB(t)

	// Fresh rows are younger than the cutoff, so nothing is pruned
	var out bytes.Buffer
	if err := runHistoryClear(&out, true, 30, dbPath); err != nil {
		t.Fatalf("history clear --keep-days failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted 0 runs.") {
		t.Errorf("Expected no deletions, got: %s", out.String())
	}
}

func TestHistoryClearNegativeKeepDays(t *testing.T) {
	var out bytes.Buffer
	if err := runHistoryClear(&out, true, -1, "unused"); err == nil {
		t.Error("Expected error for negative keep-days")
	}
}

func TestHistoryExportJSON(t *testing.T) {
	dbPath := seedHistoryDB(t)

	var out bytes.Buffer
	if err := runHistoryExport(&out, "json", "", "", dbPath); err != nil {
		t.Fatalf("history export failed: %v", err)
	}

	var records []exportRun
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("Export is not valid JSON: %v\n%s", err, out.String())
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 exported runs, got %d", len(records))
	}

	ops := map[string]bool{}
	for _, rec := range records {
		ops[rec.Operation] = true
		if rec.RunID == "" {
			t.Error("Exported run missing run_id")
		}
	}
	if !ops["copy"] || !ops["rename"] {
		t.Errorf("Expected copy and rename rows, got: %v", ops)
	}
}

func TestHistoryExportCSVToFile(t *testing.T) {
	dbPath := seedHistoryDB(t)
	outputPath := filepath.Join(t.TempDir(), "runs.csv")

	var out bytes.Buffer
	if err := runHistoryExport(&out, "csv", outputPath, "", dbPath); err != nil {
		t.Fatalf("history export --format csv failed: %v", err)
	}
	if !strings.Contains(out.String(), "Exported 2 run(s)") {
		t.Errorf("Expected export summary, got: %s", out.String())
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,run_id,operation,") {
		t.Errorf("Unexpected CSV header: %s", lines[0])
	}
}

func TestHistoryExportInvalidFormat(t *testing.T) {
	var out bytes.Buffer
	err := runHistoryExport(&out, "xml", "", "", "unused")
	if err == nil {
		t.Fatal("Expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "json") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestHistoryExportNoDatabase(t *testing.T) {
	var out bytes.Buffer
	err := runHistoryExport(&out, "json", "", "", filepath.Join(t.TempDir(), "absent.db"))
	if err == nil {
		t.Fatal("Expected error when no history exists")
	}
	if !strings.Contains(err.Error(), "no run history") {
		t.Errorf("Unexpected error: %v", err)
	}
}
