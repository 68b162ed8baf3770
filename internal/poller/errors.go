package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendant/simple-translator/pkg/schema"
)

var (
	// ErrTimeout matches a session whose deadline passed before a terminal status.
	ErrTimeout = errors.New("status poll timed out")
	// ErrRetriesExhausted matches a session that hit MaxRetries consecutive failures.
	ErrRetriesExhausted = errors.New("status poll retries exhausted")
)

// TimeoutError is returned when the session budget runs out while the job is
// still non-terminal. The job itself is left running on the remote side.
type TimeoutError struct {
	JobID      schema.JobID
	Timeout    time.Duration
	LastStatus schema.JobStatus
	Attempts   int
}

func (e *TimeoutError) Error() string {
	last := string(e.LastStatus)
	if last == "" {
		last = "none"
	}
	return fmt.Sprintf("job %s: %v after %s (%d requests, last status %s)", e.JobID, ErrTimeout, e.Timeout, e.Attempts, last)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// RetriesExhaustedError carries the last request failure of the session.
type RetriesExhaustedError struct {
	JobID    schema.JobID
	Failures int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("job %s: %v after %d consecutive failures: %v", e.JobID, ErrRetriesExhausted, e.Failures, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() []error { return []error{ErrRetriesExhausted, e.Err} }

// CallbackError describes an observer that returned an error or panicked.
// It is logged and never returned from Poll.
type CallbackError struct {
	Callback string
	JobID    schema.JobID
	Err      error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("job %s: %s callback: %v", e.JobID, e.Callback, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// FailureTypeOf maps a Poll error onto the failure type published in events.
func FailureTypeOf(err error) schema.FailureType {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return schema.FailureTypeTimeout
	case errors.Is(err, ErrRetriesExhausted):
		return schema.FailureTypeRetriesExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return schema.FailureTypeCanceled
	default:
		return schema.FailureTypeUnknown
	}
}
