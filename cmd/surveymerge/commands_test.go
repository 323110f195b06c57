package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"surveymerge/internal/preflight"
	"surveymerge/internal/testsupport"
)

func TestRunCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMetadataFile())

	out, _, err := runCLI(t, []string{"run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var summary runJSON
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run output %q: %v", out, err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Member.RowsKept != 4 || summary.Member.Dropped != 2 {
		t.Fatalf("unexpected member counts: %+v", summary.Member)
	}
	if summary.Spouse.RowsKept != 2 || summary.Spouse.Dropped != 1 {
		t.Fatalf("unexpected spouse counts: %+v", summary.Spouse)
	}
	if summary.MergedRows != 6 {
		t.Fatalf("expected 6 merged rows, got %d", summary.MergedRows)
	}
	if len(summary.Outputs) != 4 {
		t.Fatalf("expected 4 outputs, got %+v", summary.Outputs)
	}
	for _, o := range summary.Outputs {
		if _, err := os.Stat(o.Path); err != nil {
			t.Fatalf("output %s missing: %v", o.Kind, err)
		}
		if len(o.SHA256) != 64 {
			t.Fatalf("output %s has digest %q", o.Kind, o.SHA256)
		}
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []historyRunJSON
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history output %q: %v", out, err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(runs))
	}
	if runs[0].ID != summary.RunID || runs[0].Status != "succeeded" {
		t.Fatalf("unexpected history entry: %+v", runs[0])
	}
	if runs[0].MergedRows != 6 || len(runs[0].Outputs) != 4 {
		t.Fatalf("unexpected history counts: %+v", runs[0])
	}
}

func TestRunCommandDryRunSummary(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	requireContains(t, out, "(dry run)")
	requireContains(t, out, "No files written.")
	requireContains(t, out, "Member")

	if _, err := os.Stat(env.cfg.Paths.OutputFile); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote %s (err=%v)", env.cfg.Paths.OutputFile, err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "succeeded (dry)")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestInspectCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "Member.sav")
	testsupport.WriteExport(t, path, testsupport.NewExport(t, "M", 3))

	out, _, err := runCLI(t, []string{"inspect", path, "--json"}, "")
	if err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	var doc inspectJSON
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode inspect output %q: %v", out, err)
	}
	if doc.Rows != 3 {
		t.Fatalf("expected 3 rows, got %d", doc.Rows)
	}
	if len(doc.Columns) != len(testsupport.ExportColumns) {
		t.Fatalf("expected %d columns, got %d", len(testsupport.ExportColumns), len(doc.Columns))
	}
	if doc.Columns[0].Name != testsupport.ExportColumns[0] {
		t.Fatalf("first column = %q", doc.Columns[0].Name)
	}
	if doc.Product != "fixture" {
		t.Fatalf("product = %q", doc.Product)
	}

	out, _, err = runCLI(t, []string{"inspect", path}, "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "Duration__in_seconds_")
	requireContains(t, out, "F8.2")
	requireContains(t, out, "ordinal")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "Member export:")
	requireContains(t, out, "[OK]")

	if err := os.Remove(env.cfg.Paths.SpouseFile); err != nil {
		t.Fatalf("remove spouse export: %v", err)
	}
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail without the spouse export")
	}
	if !errors.Is(err, preflight.ErrPreflight) {
		t.Fatalf("expected preflight error, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
}
