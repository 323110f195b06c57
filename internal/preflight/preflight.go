package preflight

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"surveymerge/internal/config"
)

// ErrPreflight wraps every failed check returned by Err.
var ErrPreflight = errors.New("preflight failed")

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every filesystem check for cfg: both inputs, each distinct
// output directory, and the state directory.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckInputFile("Member export", cfg.Paths.MemberFile),
		CheckInputFile("Spouse export", cfg.Paths.SpouseFile),
	}

	seen := make(map[string]struct{})
	for _, out := range cfg.OutputFiles() {
		dir := filepath.Dir(out)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		results = append(results, CheckCreatableDirectory("Output directory", dir))
	}

	results = append(results, CheckCreatableDirectory("State directory", cfg.Paths.StateDir))
	return results
}

// Err joins the failed results into one error, or returns nil when all passed.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPreflight, errors.Join(errs...))
}
