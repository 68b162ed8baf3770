package jobclient

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrJobNotFound is wrapped by a ProtocolError when the service does not know the job.
var ErrJobNotFound = errors.New("job not found")

// CreationError reports a job the service rejected or could not receive.
type CreationError struct {
	StatusCode int
	Err        error
}

func (e *CreationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("create job: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("create job: %v", e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// TransportError reports a status request that never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response the client could not accept: a non-2xx
// status code, a malformed body or a missing result field.
type ProtocolError struct {
	JobID      string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("job %s: status %d: %s", e.JobID, e.StatusCode, msg)
	}
	return fmt.Sprintf("job %s: %s", e.JobID, msg)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another status request.
// Transport and protocol failures are; caller cancellation is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var protocolErr *ProtocolError
	if errors.As(err, &protocolErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
