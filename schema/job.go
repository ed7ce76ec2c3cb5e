package schema

import "time"

// JobState is the lifecycle state of an index job.
type JobState string

// Job states. A completed job is deleted, so it has no state of its own.
const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
)

// IndexJob is one unit of migration work for a tracked source.
type IndexJob struct {
	JobID     string `json:"job_id"`
	SourceID  string `json:"source_id"`
	Window    Window `json:"window"`
	CreatedAt int64  `json:"created_at"` // Unix milliseconds
	StartedAt int64  `json:"started_at"` // Unix milliseconds, 0 until started
}

// Started reports whether the job has been picked up by a pipeline.
func (j IndexJob) Started() bool {
	return j.StartedAt != 0
}

// State derives the lifecycle state from StartedAt.
func (j IndexJob) State() JobState {
	if j.Started() {
		return JobRunning
	}
	return JobPending
}

// CreatedTime returns CreatedAt as a time.
func (j IndexJob) CreatedTime() time.Time {
	return time.UnixMilli(j.CreatedAt)
}

// StartedTime returns StartedAt as a time, or the zero time when not started.
func (j IndexJob) StartedTime() time.Time {
	if !j.Started() {
		return time.Time{}
	}
	return time.UnixMilli(j.StartedAt)
}
