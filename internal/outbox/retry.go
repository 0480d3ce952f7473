package outbox

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy decides when a failed record becomes eligible again. attempt is the
// number of failed deliveries including the current one.
type RetryPolicy interface {
	NextRetryAt(now time.Time, attempt int) time.Time
}

const (
	defaultRetryDelay    = time.Second
	defaultRetryMaxDelay = 5 * time.Minute
	maxBackoffSteps      = 64
)

// FixedRetry waits the same delay after every failure.
type FixedRetry struct {
	Delay time.Duration
}

func (p FixedRetry) NextRetryAt(now time.Time, _ int) time.Time {
	delay := p.Delay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return now.Add(delay)
}

// ExponentialRetry grows the delay by Multiplier per failure up to MaxDelay, with
// +/- Jitter randomization.
type ExponentialRetry struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

func (p ExponentialRetry) NextRetryAt(now time.Time, attempt int) time.Time {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultRetryDelay
	}
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = defaultRetryMaxDelay
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	if p.Multiplier > 1 {
		b.Multiplier = p.Multiplier
	}
	if p.Jitter >= 0 && p.Jitter < 1 {
		b.RandomizationFactor = p.Jitter
	}
	b.Reset()

	steps := min(max(attempt, 1), maxBackoffSteps)
	var delay time.Duration
	for i := 0; i < steps; i++ {
		delay = b.NextBackOff()
	}
	if delay <= 0 {
		delay = b.InitialInterval
	}
	return now.Add(delay)
}
