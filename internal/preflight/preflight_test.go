package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"surveymerge/internal/config"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, f, []byte("x"))
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckInputFile(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "member.sav")
	writeFile(t, valid, append([]byte("$FL2"), make([]byte, 2044)...))
	zsav := filepath.Join(dir, "member.zsav")
	writeFile(t, zsav, []byte("$FL3@(#)"))
	csv := filepath.Join(dir, "member.csv")
	writeFile(t, csv, []byte("a,b,c\n"))
	short := filepath.Join(dir, "short.sav")
	writeFile(t, short, []byte("$F"))

	cases := []struct {
		name   string
		path   string
		passed bool
		detail string
	}{
		{name: "valid", path: valid, passed: true, detail: "SPSS system file, 2.0 KiB"},
		{name: "zsav", path: zsav, detail: "unsupported"},
		{name: "csv", path: csv, detail: "not an SPSS system file"},
		{name: "short", path: short, detail: "too short"},
		{name: "missing", path: filepath.Join(dir, "absent.sav"), detail: "does not exist"},
		{name: "directory", path: dir, detail: "not a regular file"},
		{name: "empty", path: "", detail: "not configured"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckInputFile("input", tc.path)
			if result.Passed != tc.passed {
				t.Fatalf("passed = %v, want %v (%s)", result.Passed, tc.passed, result.Detail)
			}
			if !strings.Contains(result.Detail, tc.detail) {
				t.Fatalf("detail %q does not mention %q", result.Detail, tc.detail)
			}
		})
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	dir := t.TempDir()
	if result := CheckCreatableDirectory("out", dir); !result.Passed {
		t.Fatalf("expected existing dir to pass: %s", result.Detail)
	}
	nested := filepath.Join(dir, "a", "b", "c")
	result := CheckCreatableDirectory("out", nested)
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable dir to pass: %+v", result)
	}

	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, []byte("x"))
	if result := CheckCreatableDirectory("out", filepath.Join(blocker, "sub")); result.Passed {
		t.Fatal("expected failure when an ancestor is a file")
	}
}

func TestRunAllAndErr(t *testing.T) {
	dir := t.TempDir()
	member := filepath.Join(dir, "member.sav")
	writeFile(t, member, []byte("$FL2 header"))

	cfg := config.Default()
	cfg.Paths.MemberFile = member
	cfg.Paths.SpouseFile = filepath.Join(dir, "spouse.sav")
	cfg.Paths.OutputFile = filepath.Join(dir, "out", "Merged.sav")
	cfg.Paths.CleanedMemberFile = filepath.Join(dir, "out", "Cleaned_Member.sav")
	cfg.Paths.CleanedSpouseFile = filepath.Join(dir, "out", "Cleaned_Spouse.sav")
	cfg.Paths.StateDir = filepath.Join(dir, "state")

	results := RunAll(context.Background(), &cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results (two inputs, one output dir, state), got %d: %+v", len(results), results)
	}
	if !results[0].Passed || results[1].Passed {
		t.Fatalf("unexpected input results: %+v", results[:2])
	}

	err := Err(results)
	if !errors.Is(err, ErrPreflight) {
		t.Fatalf("expected ErrPreflight, got %v", err)
	}
	if !strings.Contains(err.Error(), "Spouse export") {
		t.Fatalf("expected failed check name in %q", err)
	}

	writeFile(t, cfg.Paths.SpouseFile, []byte("$FL2 header"))
	if err := Err(RunAll(context.Background(), &cfg)); err != nil {
		t.Fatalf("expected all checks to pass, got %v", err)
	}
}
