package task

import (
	"time"

	"github.com/google/uuid"
)

// JobState represents the current state of a job.
type JobState string

// Possible job states. Succeeded and Failed are terminal: a job is never
// resurrected, though a new job with the same payload may be enqueued for a
// user-level retry.
const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Job is one unit of background work. It is created by the enqueue path and
// mutated only by the worker that dequeues it; readers get copies.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Payload    []byte     `json:"payload,omitempty"`
	State      JobState   `json:"state"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Attempt    int        `json:"attempt"`
	LastError  string     `json:"last_error,omitempty"`

	// RetryOf points at the failed job this one was re-enqueued from.
	// Re-enqueues mint a fresh ID so terminal states stay final.
	RetryOf uuid.UUID `json:"retry_of,omitempty"`
}
