package poller

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/tendant/simple-translator/pkg/schema"
)

// StatusObserver is notified about a polling session. Calls are made from a
// dispatch goroutine, never from the poll loop, in the order events occur.
type StatusObserver interface {
	// OnStatusChange is called once per distinct consecutive status.
	OnStatusChange(jobID schema.JobID, status schema.JobStatus) error
	// OnCompletion is called once, with the full terminal payload.
	OnCompletion(jobID schema.JobID, payload schema.StatusPayload) error
}

// ObserverFuncs adapts plain functions to StatusObserver. Nil fields are skipped.
type ObserverFuncs struct {
	StatusChange func(jobID schema.JobID, status schema.JobStatus) error
	Completion   func(jobID schema.JobID, payload schema.StatusPayload) error
}

func (f ObserverFuncs) OnStatusChange(jobID schema.JobID, status schema.JobStatus) error {
	if f.StatusChange == nil {
		return nil
	}
	return f.StatusChange(jobID, status)
}

func (f ObserverFuncs) OnCompletion(jobID schema.JobID, payload schema.StatusPayload) error {
	if f.Completion == nil {
		return nil
	}
	return f.Completion(jobID, payload)
}

// Observers fans each event out to every non-nil observer and joins their errors.
func Observers(observers ...StatusObserver) StatusObserver {
	var list multiObserver
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []StatusObserver

func (m multiObserver) OnStatusChange(jobID schema.JobID, status schema.JobStatus) error {
	var errs []error
	for _, o := range m {
		if err := o.OnStatusChange(jobID, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiObserver) OnCompletion(jobID schema.JobID, payload schema.StatusPayload) error {
	var errs []error
	for _, o := range m {
		if err := o.OnCompletion(jobID, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// A session enqueues at most two status changes (pending, then a terminal
// status) and one completion, so enqueue never blocks the poll loop.
const dispatchQueueSize = 4

type callback struct {
	name string
	fn   func() error
}

// dispatcher runs one session's callbacks on its own goroutine.
type dispatcher struct {
	jobID  schema.JobID
	logger *slog.Logger
	queue  chan callback
	done   chan struct{}
}

func newDispatcher(jobID schema.JobID, logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		jobID:  jobID,
		logger: logger,
		queue:  make(chan callback, dispatchQueueSize),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) statusChange(obs StatusObserver, status schema.JobStatus) {
	if obs == nil {
		return
	}
	d.queue <- callback{name: "status_change", fn: func() error { return obs.OnStatusChange(d.jobID, status) }}
}

func (d *dispatcher) completion(obs StatusObserver, payload schema.StatusPayload) {
	if obs == nil {
		return
	}
	d.queue <- callback{name: "completion", fn: func() error { return obs.OnCompletion(d.jobID, payload) }}
}

// close stops accepting callbacks. Queued callbacks still run.
func (d *dispatcher) close() { close(d.queue) }

func (d *dispatcher) wait() { <-d.done }

func (d *dispatcher) run() {
	defer close(d.done)
	for cb := range d.queue {
		if err := d.invoke(cb); err != nil {
			d.logger.Warn("observer callback failed", "callback", cb.name, "err", err)
		}
	}
}

func (d *dispatcher) invoke(cb callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{Callback: cb.name, JobID: d.jobID, Err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
		}
	}()
	if cbErr := cb.fn(); cbErr != nil {
		return &CallbackError{Callback: cb.name, JobID: d.jobID, Err: cbErr}
	}
	return nil
}
