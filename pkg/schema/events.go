// pkg/schema/events.go
package schema

// JobStatusChanged is published each time a watched job reports a new status.
type JobStatusChanged struct {
	JobID      JobID     `json:"job_id"`
	Status     JobStatus `json:"status"`
	HappenedAt int64     `json:"happened_at"`
}

// JobCompleted is published once a watched job reaches a terminal status.
type JobCompleted struct {
	JobID      JobID          `json:"job_id"`
	Status     JobStatus      `json:"status"`
	Result     map[string]any `json:"result,omitempty"`
	HappenedAt int64          `json:"happened_at"`
}

// JobWatchFailed is published when a watch session ends without a terminal status.
type JobWatchFailed struct {
	JobID       JobID       `json:"job_id"`
	Error       string      `json:"error"`
	FailureType FailureType `json:"failure_type"`
	HappenedAt  int64       `json:"happened_at"`
}

type FailureType string

const (
	FailureTypeTimeout          FailureType = "timeout"
	FailureTypeRetriesExhausted FailureType = "retries_exhausted"
	FailureTypeCanceled         FailureType = "canceled"
	FailureTypeUnknown          FailureType = "unknown"
)
