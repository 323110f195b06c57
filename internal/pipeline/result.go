package pipeline

import (
	"time"

	"surveymerge/internal/dataset"
	"surveymerge/internal/history"
)

// Export sides.
const (
	SideMember = "member"
	SideSpouse = "spouse"
)

// SideResult summarizes the cleaning of one export.
type SideResult struct {
	Side        string
	File        string
	Encoding    string
	RowsRead    int
	RowsKept    int
	Columns     int
	Deleted     []string
	NotFound    []string
	Renamed     bool
	CleanedFile string
}

// Dropped is the number of rows filtering removed.
func (s SideResult) Dropped() int {
	return s.RowsRead - s.RowsKept
}

// Result is what a run produced.
type Result struct {
	RunID        string
	DryRun       bool
	Member       SideResult
	Spouse       SideResult
	MergedRows   int
	Columns      []string
	Unordered    []string
	Storage      dataset.StorageReport
	LabelsFilled int
	Outputs      []history.Output
	Warnings     []string
	StartedAt    time.Time
	Duration     time.Duration
}
