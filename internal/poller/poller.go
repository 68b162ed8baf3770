// Package poller watches a remote job until it reaches a terminal status.
//
// Each call to Poll is an independent session with its own state: a shared
// backoff delay, a consecutive failure counter and a fixed deadline. Only
// consecutive request failures count toward MaxRetries; the deadline is the
// only bound on how long a job may stay pending.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/tendant/simple-translator/internal/backoff"
	"github.com/tendant/simple-translator/pkg/schema"
)

// StatusSource fetches the current status document for a job.
type StatusSource interface {
	GetStatus(ctx context.Context, jobID schema.JobID) (*schema.StatusPayload, error)
}

// Clock is the subset of clock.Clock the poller needs.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Metrics receives per-request and per-session outcomes.
type Metrics interface {
	ObservePoll(outcome string)
	ObserveSession(outcome string, elapsed time.Duration)
}

// Request and session outcomes reported to Metrics.
const (
	PollSuccess = "success"
	PollFailure = "failure"

	SessionCompleted        = "completed"
	SessionErrored          = "error"
	SessionTimedOut         = "timeout"
	SessionRetriesExhausted = "retries_exhausted"
	SessionCanceled         = "canceled"
	SessionFailed           = "failed"
)

// errRequestDeadline marks a status request cut off by the session deadline.
var errRequestDeadline = errors.New("status request reached session deadline")

// Config holds the recognised polling options.
type Config struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// MaxRetries is the number of consecutive failed requests before giving up.
	MaxRetries int
	// Timeout is the budget for a whole session, measured from its start.
	Timeout time.Duration
}

// DefaultConfig returns 1s initial delay, 30s max delay, x1.5, 7 retries, 250s timeout.
func DefaultConfig() Config {
	return Config{
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 1.5,
		MaxRetries:    7,
		Timeout:       250 * time.Second,
	}
}

func (c Config) policy() (backoff.Policy, error) {
	return backoff.New(c.InitialDelay, c.MaxDelay, c.BackoffFactor)
}

// Validate reports configuration errors, including an invalid backoff policy.
func (c Config) Validate() error {
	if _, err := c.policy(); err != nil {
		return err
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be greater than zero (got %d)", c.MaxRetries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than zero (got %s)", c.Timeout)
	}
	return nil
}

// Result is the outcome of a session that reached a terminal status.
type Result struct {
	JobID     schema.JobID
	SessionID string
	Status    schema.JobStatus
	Payload   schema.StatusPayload
	Attempts  int
	Elapsed   time.Duration
}

// Poller runs polling sessions against a StatusSource. A Poller holds no
// per-job state and may run sessions for different jobs concurrently.
type Poller struct {
	source    StatusSource
	cfg       Config
	policy    backoff.Policy
	clock     Clock
	logger    *slog.Logger
	metrics   Metrics
	retryable func(error) bool

	dispatchers sync.WaitGroup
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// WithMetrics reports request and session outcomes to m.
func WithMetrics(m Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithRetryable installs the classifier for status request errors. Errors it
// rejects end the session at once instead of counting toward MaxRetries.
// Unknown status values are always retried.
func WithRetryable(fn func(error) bool) Option {
	return func(p *Poller) { p.retryable = fn }
}

// New validates cfg and returns a Poller reading from source.
func New(source StatusSource, cfg Config, opts ...Option) (*Poller, error) {
	if source == nil {
		return nil, errors.New("poller: nil status source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("poller: %w", err)
	}
	policy, _ := cfg.policy()

	p := &Poller{
		source:    source,
		cfg:       cfg,
		policy:    policy,
		clock:     clock.WallClock,
		logger:    slog.Default(),
		metrics:   nopMetrics{},
		retryable: func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// pollState belongs to exactly one session.
type pollState struct {
	lastStatus schema.JobStatus // "" until the first parsed status
	delay      time.Duration
	failures   int
	attempts   int
	deadline   time.Time
}

// Poll watches jobID until it reports a terminal status, the session
// deadline passes, MaxRetries consecutive requests fail or ctx is done.
// obs may be nil. Poll returns once the completion callback is queued; use
// Wait to block until every queued callback has run.
func (p *Poller) Poll(ctx context.Context, jobID schema.JobID, obs StatusObserver) (*Result, error) {
	sessionID := uuid.NewString()
	logger := p.logger.With("job_id", jobID, "session_id", sessionID)

	start := p.clock.Now()
	st := &pollState{
		delay:    p.policy.Initial,
		deadline: start.Add(p.cfg.Timeout),
	}

	d := newDispatcher(jobID, logger)
	p.dispatchers.Add(1)
	go func() {
		defer p.dispatchers.Done()
		d.wait()
	}()
	defer d.close()

	logger.Info("polling job status", "timeout", p.cfg.Timeout, "max_retries", p.cfg.MaxRetries)
	res, err := p.run(ctx, jobID, st, obs, d, logger)
	elapsed := p.clock.Now().Sub(start)

	if err != nil {
		outcome := sessionOutcome(err)
		p.metrics.ObserveSession(outcome, elapsed)
		if outcome == SessionCanceled {
			logger.Warn("polling canceled", "attempts", st.attempts, "elapsed", elapsed, "err", err)
		} else {
			logger.Error("polling stopped", "outcome", outcome, "attempts", st.attempts, "elapsed", elapsed, "err", err)
		}
		return nil, err
	}

	res.SessionID = sessionID
	res.Attempts = st.attempts
	res.Elapsed = elapsed
	if res.Status == schema.JobStatusCompleted {
		p.metrics.ObserveSession(SessionCompleted, elapsed)
	} else {
		p.metrics.ObserveSession(SessionErrored, elapsed)
	}
	logger.Info("job reached terminal status", "status", res.Status, "attempts", st.attempts, "elapsed", elapsed)
	return res, nil
}

// Wait blocks until callbacks queued by finished sessions have run.
func (p *Poller) Wait() {
	p.dispatchers.Wait()
}

func (p *Poller) run(ctx context.Context, jobID schema.JobID, st *pollState, obs StatusObserver, d *dispatcher, logger *slog.Logger) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("poll job %s: %w", jobID, err)
		}
		if !p.clock.Now().Before(st.deadline) {
			return nil, p.timeoutError(jobID, st)
		}

		st.attempts++
		payload, err := p.request(ctx, jobID, st.deadline)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil, fmt.Errorf("poll job %s: %w", jobID, ctx.Err())
			case errors.Is(err, errRequestDeadline):
				return nil, p.timeoutError(jobID, st)
			case !p.retryable(err):
				p.metrics.ObservePoll(PollFailure)
				return nil, fmt.Errorf("poll job %s: %w", jobID, err)
			}
		}

		var status schema.JobStatus
		if err == nil {
			status, err = parseStatus(jobID, payload)
		}
		if err != nil {
			p.metrics.ObservePoll(PollFailure)
			st.failures++
			if st.failures >= p.cfg.MaxRetries {
				return nil, &RetriesExhaustedError{JobID: jobID, Failures: st.failures, Err: err}
			}
			logger.Warn("status request failed, retrying", "failures", st.failures, "delay", st.delay, "err", err)
			if err := p.sleep(ctx, st); err != nil {
				return nil, fmt.Errorf("poll job %s: %w", jobID, err)
			}
			continue
		}

		p.metrics.ObservePoll(PollSuccess)
		st.failures = 0

		if status != st.lastStatus {
			logger.Info("job status changed", "status", status, "previous", st.lastStatus)
			st.lastStatus = status
			d.statusChange(obs, status)
		}

		if status.IsTerminal() {
			d.completion(obs, *payload)
			return &Result{JobID: jobID, Status: status, Payload: *payload}, nil
		}

		logger.Debug("job still pending", "attempt", st.attempts, "delay", st.delay)
		if err := p.sleep(ctx, st); err != nil {
			return nil, fmt.Errorf("poll job %s: %w", jobID, err)
		}
	}
}

func (p *Poller) timeoutError(jobID schema.JobID, st *pollState) error {
	return &TimeoutError{JobID: jobID, Timeout: p.cfg.Timeout, LastStatus: st.lastStatus, Attempts: st.attempts}
}

// request issues one status request, bounded by the session deadline.
func (p *Poller) request(ctx context.Context, jobID schema.JobID, deadline time.Time) (*schema.StatusPayload, error) {
	reqCtx, cancel := context.WithTimeout(ctx, deadline.Sub(p.clock.Now()))
	defer cancel()

	payload, err := p.source.GetStatus(reqCtx, jobID)
	if err != nil && ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %w", errRequestDeadline, err)
	}
	return payload, err
}

// parseStatus rejects unknown status values as a protocol failure, counted
// like a failed request.
func parseStatus(jobID schema.JobID, payload *schema.StatusPayload) (schema.JobStatus, error) {
	if payload == nil {
		return "", fmt.Errorf("job %s: empty status response", jobID)
	}
	status, err := schema.ParseJobStatus(payload.Result)
	if err != nil {
		return "", fmt.Errorf("job %s: parse status: %w", jobID, err)
	}
	return status, nil
}

// sleep waits for the current delay, truncated at the deadline, and advances
// the delay. The delay is shared by the pending and the failure cadence.
func (p *Poller) sleep(ctx context.Context, st *pollState) error {
	wait := st.delay
	st.delay = p.policy.Next(st.delay)

	if remaining := st.deadline.Sub(p.clock.Now()); wait > remaining {
		wait = remaining
	}
	if wait <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(wait):
		return nil
	}
}

func sessionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return SessionTimedOut
	case errors.Is(err, ErrRetriesExhausted):
		return SessionRetriesExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SessionCanceled
	default:
		return SessionFailed
	}
}

type nopMetrics struct{}

func (nopMetrics) ObservePoll(string)                   {}
func (nopMetrics) ObserveSession(string, time.Duration) {}
