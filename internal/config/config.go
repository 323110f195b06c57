package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ErrConfiguration marks a config file that parsed but cannot be used.
var ErrConfiguration = errors.New("invalid configuration")

// Paths contains input, output, and state locations. Relative file paths are
// resolved against BaseDir.
type Paths struct {
	BaseDir           string `toml:"base_dir"`
	MemberFile        string `toml:"member_file"`
	SpouseFile        string `toml:"spouse_file"`
	OutputFile        string `toml:"output_file"`
	CleanedMemberFile string `toml:"cleaned_member_file"`
	CleanedSpouseFile string `toml:"cleaned_spouse_file"`
	MetadataFile      string `toml:"metadata_file"`
	ParquetFile       string `toml:"parquet_file"`
	StateDir          string `toml:"state_dir"`
}

// Survey holds the per-club constants stamped onto every merged row.
type Survey struct {
	SurveyType        string `toml:"survey_type"`
	ResponseType      string `toml:"response_type"`
	ClubIndex         string `toml:"club_index"`
	ClubName          string `toml:"club_name"`
	ClubAddressCity   string `toml:"club_address_city"`
	ClubAddressState  string `toml:"club_address_state"`
	ClubAddressZip    string `toml:"club_address_zip"`
	DueDate           string `toml:"due_date"` // ISO 8601
	ClubCategory      string `toml:"club_category"`
	ClubType          int    `toml:"club_type"`
	ClubAddressRegion int    `toml:"club_address_region"`
	TotalMemberCount  int    `toml:"total_member_count"`
	TotalSpouseCount  int    `toml:"total_spouse_count"`
}

// Cleaning controls row filtering and column housekeeping.
type Cleaning struct {
	// CheckStart and CheckEnd select the answer columns by position, end
	// exclusive. A row whose answers there are all blank is dropped.
	CheckStart       int      `toml:"check_start"`
	CheckEnd         int      `toml:"check_end"`
	MissingSentinels []string `toml:"missing_sentinels"`
	DeleteColumns    []string `toml:"delete_columns"`
	RenameFrom       string   `toml:"rename_from"`
	RenameTo         string   `toml:"rename_to"`
	StorageStart     int      `toml:"storage_start"`
	ColumnOrder      []string `toml:"column_order"`
}

// Output controls how files are written.
type Output struct {
	Compress     bool   `toml:"compress"`
	Product      string `toml:"product"`
	WriteCleaned bool   `toml:"write_cleaned"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for surveymerge.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Survey   Survey   `toml:"survey"`
	Cleaning Cleaning `toml:"cleaning"`
	Output   Output   `toml:"output"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory and the parent directories
// of every configured output file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir}
	for _, file := range c.OutputFiles() {
		dirs = append(dirs, filepath.Dir(file))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// InputFiles returns the member and spouse exports.
func (c *Config) InputFiles() []string {
	return []string{c.Paths.MemberFile, c.Paths.SpouseFile}
}

// OutputFiles returns every file a run writes, skipping disabled outputs.
func (c *Config) OutputFiles() []string {
	files := []string{c.Paths.OutputFile}
	if c.Output.WriteCleaned {
		files = append(files, c.Paths.CleanedMemberFile, c.Paths.CleanedSpouseFile)
	}
	for _, optional := range []string{c.Paths.MetadataFile, c.Paths.ParquetFile} {
		if optional != "" {
			files = append(files, optional)
		}
	}
	return files
}

// HistoryPath is the SQLite run ledger inside the state directory.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, historyFileName)
}

// LockPath is the single-run lock file inside the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, lockFileName)
}

// DueTime parses the configured due date. ok is false when none is set.
func (s Survey) DueTime() (time.Time, bool, error) {
	value := strings.TrimSpace(s.DueDate)
	if value == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range dueDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("survey.due_date %q is not an ISO 8601 date", value)
}

var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// resolveFile expands pathValue, treating relative paths as relative to base.
func resolveFile(base, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if !strings.HasPrefix(pathValue, "~") && !filepath.IsAbs(pathValue) {
		pathValue = filepath.Join(base, pathValue)
	}
	return expandPath(pathValue)
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
