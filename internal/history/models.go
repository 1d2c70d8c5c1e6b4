package history

import "time"

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one batch pass over the input folder.
type Run struct {
	ID             string
	Status         RunStatus
	StartedAt      time.Time
	FinishedAt     time.Time
	FilesTotal     int
	FilesSucceeded int
	FilesFailed    int
	DryRun         bool
	ErrorMessage   string
}

// Duration returns the run's wall time, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FileRecord is the outcome of one document within a run.
type FileRecord struct {
	RunID            string
	FileName         string
	SourcePath       string
	ShipmentID       string
	IdentifierSource string
	Outcome          string
	Destination      string
	ErrorKind        string
	ErrorMessage     string
	ProcessedAt      time.Time
}
