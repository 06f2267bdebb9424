// Package pacing enforces the politeness pause inserted before every
// attempt, independent of retry backoff.
package pacing

import (
	"context"
	"time"
)

// Injector pauses for a fixed duration before each attempt.
type Injector struct {
	delay time.Duration
}

// New creates an injector. A zero or negative delay makes Wait a no-op.
func New(delay time.Duration) *Injector {
	return &Injector{delay: delay}
}

// Delay returns the configured pause.
func (i *Injector) Delay() time.Duration {
	return i.delay
}

// Wait suspends the caller for the configured delay, returning early with
// the context error if the run is cancelled.
func (i *Injector) Wait(ctx context.Context) error {
	if i == nil || i.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(i.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
