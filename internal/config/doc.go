// Package config loads, normalizes, and validates surveymerge configuration data.
//
// It supplies repository defaults (the delete list, rename pair, answer
// column range, and canonical column order of the club survey layout),
// expands user paths including tilde shortcuts, resolves relative file names
// against paths.base_dir, reads TOML files, and honours SURVEYMERGE_*
// environment fallbacks for the values operators change between runs.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
