// Package main hosts the surveymerge CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, then hands the work to
// the internal packages: pipeline for merge runs, sav for inspection,
// preflight for environment checks, and history for the run ledger. Commands
// here only format results for the terminal or as JSON.
package main
