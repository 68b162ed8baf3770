package bus

import (
	"fmt"
	"time"

	"github.com/tendant/simple-translator/internal/poller"
	"github.com/tendant/simple-translator/pkg/schema"
)

// Publisher is satisfied by *Client.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// StatusPublisher is a poller.StatusObserver that republishes session events:
// status changes on <subject>.status, completions on <subject>.completed and
// failed watches on <subject>.failed.
type StatusPublisher struct {
	pub     Publisher
	subject string
	now     func() time.Time
}

var _ poller.StatusObserver = (*StatusPublisher)(nil)

func NewStatusPublisher(pub Publisher, subject string) *StatusPublisher {
	return &StatusPublisher{pub: pub, subject: subject, now: time.Now}
}

func (p *StatusPublisher) StatusSubject() string    { return p.subject + ".status" }
func (p *StatusPublisher) CompletedSubject() string { return p.subject + ".completed" }
func (p *StatusPublisher) FailedSubject() string    { return p.subject + ".failed" }

func (p *StatusPublisher) OnStatusChange(jobID schema.JobID, status schema.JobStatus) error {
	evt := schema.JobStatusChanged{
		JobID:      jobID,
		Status:     status,
		HappenedAt: p.now().Unix(),
	}
	if err := p.pub.PublishJSON(p.StatusSubject(), evt); err != nil {
		return fmt.Errorf("publish status change: %w", err)
	}
	return nil
}

func (p *StatusPublisher) OnCompletion(jobID schema.JobID, payload schema.StatusPayload) error {
	status, err := schema.ParseJobStatus(payload.Result)
	if err != nil {
		return fmt.Errorf("publish completion: %w", err)
	}
	evt := schema.JobCompleted{
		JobID:      jobID,
		Status:     status,
		Result:     payload.Body,
		HappenedAt: p.now().Unix(),
	}
	if err := p.pub.PublishJSON(p.CompletedSubject(), evt); err != nil {
		return fmt.Errorf("publish completion: %w", err)
	}
	return nil
}

// PublishFailure reports a watch session that ended without a terminal status.
func (p *StatusPublisher) PublishFailure(jobID schema.JobID, cause error) error {
	evt := schema.JobWatchFailed{
		JobID:       jobID,
		Error:       cause.Error(),
		FailureType: poller.FailureTypeOf(cause),
		HappenedAt:  p.now().Unix(),
	}
	if err := p.pub.PublishJSON(p.FailedSubject(), evt); err != nil {
		return fmt.Errorf("publish failure: %w", err)
	}
	return nil
}
