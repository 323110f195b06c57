package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"surveymerge/internal/config"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.MemberFile)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestCommandsRequireInputFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SURVEYMERGE_MEMBER_FILE", "")
	t.Setenv("SURVEYMERGE_SPOUSE_FILE", "")

	missing := filepath.Join(t.TempDir(), "absent.toml")
	_, _, err := runCLI(t, []string{"run"}, missing)
	if err == nil {
		t.Fatal("expected run without input files to fail")
	}
	if !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, err.Error(), "paths.member_file is required")
}
