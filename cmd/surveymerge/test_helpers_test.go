package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"surveymerge/internal/config"
	"surveymerge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

// setupCLITestEnv writes member and spouse fixtures plus a config file that
// points at them. HOME is redirected so no user config is picked up.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"SURVEYMERGE_BASE_DIR", "SURVEYMERGE_MEMBER_FILE", "SURVEYMERGE_SPOUSE_FILE",
		"SURVEYMERGE_OUTPUT_FILE", "SURVEYMERGE_STATE_DIR", "SURVEYMERGE_DUE_DATE",
	} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t, opts...)
	testsupport.WriteExport(t, cfg.Paths.MemberFile, testsupport.NewExport(t, "M", 6, 1, 4))
	testsupport.WriteExport(t, cfg.Paths.SpouseFile, testsupport.NewExport(t, "S", 3, 0))

	configPath := writeConfigFile(t, cfg)
	return cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeConfigFile(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "surveymerge.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
