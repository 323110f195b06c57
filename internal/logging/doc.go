// Package logging builds the slog loggers used by surveymerge.
//
// It provides a console handler that prints one header line per record with
// indented fields, a JSON handler for machine consumption, and helpers that
// tag records with the current run id and export side taken from a context.
// NewNop returns a logger that discards everything, for tests and wiring code
// that has no logger yet.
package logging
