package domain

import "time"

// JobStatus enumerates training job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status accepts no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Valid reports whether the status is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s.Terminal()
}

// TrainingJob tracks one model fine-tuning run from submission to its
// terminal outcome. (OwnerID, Label) identifies the logical slot a user
// trains into; ResultVersion is set only once the run succeeds.
type TrainingJob struct {
	ID                 string
	OwnerID            string
	Label              string
	Gender             string
	Status             JobStatus
	ResultVersion      string
	ProviderTrainingID string
	Locale             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CanTransitionTo reports whether the status machine permits moving from
// the job's current status to next. Terminal states absorb everything.
func (j *TrainingJob) CanTransitionTo(next JobStatus) bool {
	return j.Status == JobStatusPending && next.Terminal()
}
