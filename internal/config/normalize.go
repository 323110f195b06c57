package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSurvey()
	c.normalizeCleaning()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func envFallback(value *string, key string) {
	if strings.TrimSpace(*value) != "" {
		return
	}
	if env, ok := os.LookupEnv(key); ok {
		*value = strings.TrimSpace(env)
	}
}

func defaultIfEmpty(value *string, fallback string) {
	if strings.TrimSpace(*value) == "" {
		*value = fallback
	}
}

func (c *Config) normalizePaths() error {
	envFallback(&c.Paths.BaseDir, "SURVEYMERGE_BASE_DIR")
	envFallback(&c.Paths.MemberFile, "SURVEYMERGE_MEMBER_FILE")
	envFallback(&c.Paths.SpouseFile, "SURVEYMERGE_SPOUSE_FILE")
	envFallback(&c.Paths.OutputFile, "SURVEYMERGE_OUTPUT_FILE")
	envFallback(&c.Paths.StateDir, "SURVEYMERGE_STATE_DIR")
	defaultIfEmpty(&c.Paths.BaseDir, defaultBaseDir)
	defaultIfEmpty(&c.Paths.OutputFile, defaultOutputFile)
	defaultIfEmpty(&c.Paths.CleanedMemberFile, defaultCleanedMemberFile)
	defaultIfEmpty(&c.Paths.CleanedSpouseFile, defaultCleanedSpouseFile)
	defaultIfEmpty(&c.Paths.StateDir, defaultStateDir)

	var err error
	if c.Paths.BaseDir, err = expandPath(strings.TrimSpace(c.Paths.BaseDir)); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	files := []struct {
		key   string
		value *string
	}{
		{"paths.member_file", &c.Paths.MemberFile},
		{"paths.spouse_file", &c.Paths.SpouseFile},
		{"paths.output_file", &c.Paths.OutputFile},
		{"paths.cleaned_member_file", &c.Paths.CleanedMemberFile},
		{"paths.cleaned_spouse_file", &c.Paths.CleanedSpouseFile},
		{"paths.metadata_file", &c.Paths.MetadataFile},
		{"paths.parquet_file", &c.Paths.ParquetFile},
	}
	for _, f := range files {
		if *f.value, err = resolveFile(c.Paths.BaseDir, *f.value); err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeSurvey() {
	envFallback(&c.Survey.DueDate, "SURVEYMERGE_DUE_DATE")
	for _, field := range []*string{
		&c.Survey.SurveyType, &c.Survey.ResponseType, &c.Survey.ClubIndex, &c.Survey.ClubName,
		&c.Survey.ClubAddressCity, &c.Survey.ClubAddressState, &c.Survey.ClubAddressZip,
		&c.Survey.DueDate, &c.Survey.ClubCategory,
	} {
		*field = strings.TrimSpace(*field)
	}
}

func (c *Config) normalizeCleaning() {
	c.Cleaning.RenameFrom = strings.TrimSpace(c.Cleaning.RenameFrom)
	c.Cleaning.RenameTo = strings.TrimSpace(c.Cleaning.RenameTo)
	c.Cleaning.DeleteColumns = compactNames(c.Cleaning.DeleteColumns)
	c.Cleaning.ColumnOrder = compactNames(c.Cleaning.ColumnOrder)
	sentinels := make([]string, 0, len(c.Cleaning.MissingSentinels))
	for _, s := range c.Cleaning.MissingSentinels {
		if s = strings.TrimSpace(s); s != "" {
			sentinels = append(sentinels, s)
		}
	}
	c.Cleaning.MissingSentinels = sentinels
}

// compactNames trims names and drops blanks and repeats, keeping order.
func compactNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func (c *Config) normalizeOutput() {
	c.Output.Product = strings.TrimSpace(c.Output.Product)
	if c.Output.Product == "" {
		c.Output.Product = defaultProduct
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
