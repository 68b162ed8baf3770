// Package backoff computes the delay between successive status polls.
// A Policy is a value type and safe for concurrent use.
package backoff

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidPolicy is returned by New for unusable parameters.
var ErrInvalidPolicy = errors.New("invalid backoff policy")

// Policy grows a delay multiplicatively up to a ceiling.
// Next(d) = min(d * Factor, Max).
type Policy struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// Default matches the remote service defaults: 1s initial, 30s max, x1.5.
func Default() Policy {
	return Policy{Initial: time.Second, Max: 30 * time.Second, Factor: 1.5}
}

// New validates and returns a Policy.
func New(initial, maxDelay time.Duration, factor float64) (Policy, error) {
	p := Policy{Initial: initial, Max: maxDelay, Factor: factor}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate rejects a factor <= 1, a non-positive initial delay and a ceiling
// below the initial delay.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("%w: initial delay must be greater than zero (got %s)", ErrInvalidPolicy, p.Initial)
	}
	if p.Factor <= 1 || math.IsNaN(p.Factor) || math.IsInf(p.Factor, 0) {
		return fmt.Errorf("%w: factor must be greater than one (got %v)", ErrInvalidPolicy, p.Factor)
	}
	if p.Max < p.Initial {
		return fmt.Errorf("%w: max delay %s is below initial delay %s", ErrInvalidPolicy, p.Max, p.Initial)
	}
	return nil
}

// Next returns the delay that follows current.
func (p Policy) Next(current time.Duration) time.Duration {
	next := float64(current) * p.Factor
	if next >= float64(p.Max) {
		return p.Max
	}
	return time.Duration(next)
}

// After returns the delay after n steps from Initial: min(Initial*Factor^n, Max).
func (p Policy) After(n int) time.Duration {
	d := p.Initial
	for i := 0; i < n && d < p.Max; i++ {
		d = p.Next(d)
	}
	if d > p.Max {
		return p.Max
	}
	return d
}
