package entity

import "time"

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed" // every task succeeded
	RunFailed    RunStatus = "failed"    // at least one task failed
	RunAborted   RunStatus = "aborted"   // dispatch stopped early (bad row or cancellation)
)

// Run is the persisted history record of one batch invocation.
type Run struct {
	ID         string       `json:"id"`
	CSVPath    string       `json:"csv_path"`
	Column     string       `json:"column"`
	Prefix     string       `json:"prefix"`
	Date       time.Time    `json:"date"`
	Status     RunStatus    `json:"status"`
	Total      int          `json:"total"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Error      string       `json:"error,omitempty"`
	Failures   []TaskResult `json:"failures,omitempty"`
}

// Finish copies the report's counters into the run and sets its final status.
// A non-nil batchErr means dispatch stopped before the source was exhausted.
func (r *Run) Finish(rep *BatchReport, batchErr error) {
	finished := rep.FinishedAt
	r.Total = rep.Total
	r.Succeeded = rep.Succeeded
	r.Failed = rep.Failed
	r.Failures = rep.Failures
	r.FinishedAt = &finished

	switch {
	case batchErr != nil:
		r.Status = RunAborted
		r.Error = batchErr.Error()
	case rep.OK():
		r.Status = RunCompleted
	default:
		r.Status = RunFailed
	}
}
