// Package preflight checks the filesystem before a merge run.
//
// RunAll confirms both input exports are readable SPSS system files and that
// every configured output location is writable, so a run fails before it
// reads anything rather than after the cleaned checkpoints are written. The
// CLI "surveymerge check" command prints the same results.
package preflight
