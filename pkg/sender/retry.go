package sender

import (
	"context"
	"math"
	"time"
)

const maxInterval = time.Duration(math.MaxInt64)

// RetryPolicy tracks the attempt index and the exponential backoff interval of one Send call.
type RetryPolicy struct {
	attempt  int
	interval time.Duration
}

// NewRetryPolicy starts at attempt 1. initial is the wait that follows the first failure.
func NewRetryPolicy(initial time.Duration) *RetryPolicy {
	return &RetryPolicy{attempt: 1, interval: initial}
}

// Attempt returns the 1-based index of the current attempt.
func (p *RetryPolicy) Attempt() int { return p.attempt }

// ShouldRetry reports whether another attempt is allowed after the current one.
func (p *RetryPolicy) ShouldRetry(maxAttempts int) bool { return p.attempt < maxAttempts }

// CurrentInterval is the wait before the next attempt.
func (p *RetryPolicy) CurrentInterval() time.Duration { return p.interval }

// Advance doubles the interval and moves to the next attempt. The interval saturates at the
// largest Duration instead of wrapping negative.
func (p *RetryPolicy) Advance() {
	if p.interval > maxInterval/2 {
		p.interval = maxInterval
	} else {
		p.interval *= 2
	}
	p.attempt++
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
