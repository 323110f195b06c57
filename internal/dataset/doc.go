// Package dataset models a survey export as a Table of typed columns paired
// with per-column Metadata, and implements the transformations the merge
// pipeline applies to it.
//
// Every column in the Table has exactly one Attributes record in Metadata
// (label, value labels, display width, measurement level, format, storage
// width). Operations on a Dataset edit both sides in the same step so the
// two name sets never diverge; Sync repairs a Dataset whose Table was mutated
// directly.
//
// Operations never log. They return small reports describing skipped names
// or untouched formats, and the caller decides how loudly to surface them.
package dataset
