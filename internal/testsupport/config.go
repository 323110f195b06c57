package testsupport

import (
	"path/filepath"
	"testing"

	"surveymerge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose paths live in a fresh temp directory.
// Inputs go under inputs/, outputs under out/, and the ledger under state/.
// The check range matches the answer columns written by WriteExport.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDir = base
	cfgVal.Paths.MemberFile = filepath.Join(base, "inputs", "Member.sav")
	cfgVal.Paths.SpouseFile = filepath.Join(base, "inputs", "Spouse.sav")
	cfgVal.Paths.OutputFile = filepath.Join(base, "out", "Merged.sav")
	cfgVal.Paths.CleanedMemberFile = filepath.Join(base, "out", "Cleaned_Member.sav")
	cfgVal.Paths.CleanedSpouseFile = filepath.Join(base, "out", "Cleaned_Spouse.sav")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")

	cfgVal.Survey = config.Survey{
		SurveyType:        "Member Satisfaction",
		ResponseType:      "Member",
		ClubIndex:         "C-0042",
		ClubName:          "Oak Hills Country Club",
		ClubAddressCity:   "Springfield",
		ClubAddressState:  "IL",
		ClubAddressZip:    "62704",
		DueDate:           "2025-01-31",
		ClubCategory:      "Private",
		ClubType:          2,
		ClubAddressRegion: 5,
		TotalMemberCount:  400,
		TotalSpouseCount:  250,
	}
	cfgVal.Cleaning.CheckStart = AnswerStart
	cfgVal.Cleaning.CheckEnd = AnswerEnd

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithMetadataFile enables the JSON sidecar under out/.
func WithMetadataFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.MetadataFile = filepath.Join(b.baseDir, "out", "Merged.json")
	}
}

// WithParquetFile enables the Parquet copy under out/.
func WithParquetFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.ParquetFile = filepath.Join(b.baseDir, "out", "Merged.parquet")
	}
}

// WithoutCleaned disables the per-side checkpoint files.
func WithoutCleaned() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.WriteCleaned = false
	}
}

// WithCleaning lets a test adjust the cleaning section directly.
func WithCleaning(fn func(*config.Cleaning)) ConfigOption {
	return func(b *configBuilder) {
		fn(&b.cfg.Cleaning)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.BaseDir
}
