package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSurvey(); err != nil {
		return err
	}
	if err := c.validateCleaning(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.MemberFile == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("paths.member_file is required. Set SURVEYMERGE_MEMBER_FILE or edit %s (create with 'surveymerge config init')", defaultPath)
	}
	if c.Paths.SpouseFile == "" {
		return errors.New("paths.spouse_file is required (or set SURVEYMERGE_SPOUSE_FILE)")
	}
	if filepath.Clean(c.Paths.MemberFile) == filepath.Clean(c.Paths.SpouseFile) {
		return errors.New("paths.member_file and paths.spouse_file must differ")
	}
	inputs := map[string]struct{}{
		filepath.Clean(c.Paths.MemberFile): {},
		filepath.Clean(c.Paths.SpouseFile): {},
	}
	seen := make(map[string]struct{})
	for _, out := range c.OutputFiles() {
		cleaned := filepath.Clean(out)
		if _, clash := inputs[cleaned]; clash {
			return fmt.Errorf("output %s would overwrite an input file", out)
		}
		if _, dup := seen[cleaned]; dup {
			return fmt.Errorf("output %s is configured more than once", out)
		}
		seen[cleaned] = struct{}{}
	}
	return nil
}

func (c *Config) validateSurvey() error {
	if _, _, err := c.Survey.DueTime(); err != nil {
		return err
	}
	if err := ensureNonNegative(map[string]int{
		"survey.total_member_count": c.Survey.TotalMemberCount,
		"survey.total_spouse_count": c.Survey.TotalSpouseCount,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCleaning() error {
	if err := ensureNonNegative(map[string]int{
		"cleaning.check_start":   c.Cleaning.CheckStart,
		"cleaning.check_end":     c.Cleaning.CheckEnd,
		"cleaning.storage_start": c.Cleaning.StorageStart,
	}); err != nil {
		return err
	}
	if c.Cleaning.CheckEnd < c.Cleaning.CheckStart {
		return errors.New("cleaning.check_end must be >= cleaning.check_start")
	}
	if (c.Cleaning.RenameFrom == "") != (c.Cleaning.RenameTo == "") {
		return errors.New("cleaning.rename_from and cleaning.rename_to must be set together")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func ensureNonNegative(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
