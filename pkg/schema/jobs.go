// pkg/schema/jobs.go
package schema

import (
	"errors"
	"fmt"
)

// JobID identifies a job issued by the remote job service.
type JobID string

// JobStatus is the lifecycle state reported by the remote job service.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
)

// ErrUnknownStatus is returned for status values outside the known set.
var ErrUnknownStatus = errors.New("unknown job status")

// ParseJobStatus converts a wire value into a JobStatus. Only the exact
// lowercase values are accepted.
func ParseJobStatus(s string) (JobStatus, error) {
	switch status := JobStatus(s); status {
	case JobStatusPending, JobStatusCompleted, JobStatusError:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// IsTerminal reports whether no further polling should happen after s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// CreateJobRequest carries the parameters of a new translation job.
type CreateJobRequest struct {
	VideoLength int `url:"video_length" json:"video_length"`
}

type CreateJobResponse struct {
	JobID JobID `json:"job_id"`
}

// StatusPayload is a decoded status response. Body holds the full response
// document, including the "result" field, exactly as the service sent it.
type StatusPayload struct {
	JobID  JobID          `json:"job_id"`
	Result string         `json:"result"`
	Body   map[string]any `json:"body,omitempty"`
}
