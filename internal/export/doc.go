// Package export writes secondary copies of a merged dataset: a JSON
// description of its dictionary and an optional Parquet copy of its rows.
// Both writers replace their target atomically.
package export
