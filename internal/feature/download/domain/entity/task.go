// Package entity defines the domain models for the download feature.
package entity

import "time"

// DownloadTask is one unit of work: fetch one symbol for one date and persist it.
// It is fully determined at dispatch time and shares no state with other tasks.
type DownloadTask struct {
	Symbol string
	Row    int       // Source row, used to order failures in reports
	Date   time.Time // Reference date; only year, month and day are used
	Prefix string    // Output path prefix
}

// TaskStatus is the outcome of a single task.
type TaskStatus string

const (
	TaskSucceeded   TaskStatus = "succeeded"
	TaskFetchFailed TaskStatus = "fetch_failed"
	TaskWriteFailed TaskStatus = "write_failed"
)

// TaskResult records what happened to one task.
type TaskResult struct {
	Symbol string     `json:"symbol"`
	Row    int        `json:"row"`
	Path   string     `json:"path"`
	Status TaskStatus `json:"status"`
	Bytes  int        `json:"bytes,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// BatchReport aggregates every task result of one batch.
type BatchReport struct {
	Date       time.Time
	Prefix     string
	Total      int // Tasks dispatched
	Succeeded  int
	Failed     int
	Failures   []TaskResult // Sorted by row
	StartedAt  time.Time
	FinishedAt time.Time
}

// Record folds one result into the report.
func (r *BatchReport) Record(res TaskResult) {
	r.Total++
	if res.Status == TaskSucceeded {
		r.Succeeded++
		return
	}
	r.Failed++
	r.Failures = append(r.Failures, res)
}

// OK reports whether every dispatched task succeeded.
func (r *BatchReport) OK() bool {
	return r.Failed == 0
}
