package history

import "time"

// Status represents the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Output is one file a run wrote.
type Output struct {
	Kind   string // merged, cleaned_member, cleaned_spouse, metadata, parquet
	Path   string
	Size   int64
	SHA256 string
}

// Run is one ledger row.
type Run struct {
	ID            string
	Status        Status
	DryRun        bool
	ConfigPath    string
	MemberFile    string
	SpouseFile    string
	MemberRows    int
	SpouseRows    int
	MemberDropped int
	SpouseDropped int
	MergedRows    int
	MergedColumns int
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Outputs       []Output
}

// Duration reports how long a finished run took, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
