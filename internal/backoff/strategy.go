// Package backoff provides the wait strategies inserted between a failed
// attempt and its retry.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy computes the wait before the next attempt. attempt is 1-based:
// 1 for the first retry, 2 for the second, and so on.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Fixed waits the same duration before every retry.
type Fixed struct {
	Duration time.Duration
}

// NewFixed creates a fixed-delay strategy.
func NewFixed(d time.Duration) *Fixed {
	return &Fixed{Duration: d}
}

// Delay returns the configured duration regardless of attempt.
func (f *Fixed) Delay(attempt int) time.Duration {
	return f.Duration
}

// Exponential grows the delay geometrically: base * multiplier^(attempt-1),
// capped at MaxDelay when MaxDelay > 0.
type Exponential struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// NewExponential creates an exponential strategy. maxDelay of 0 means no cap.
func NewExponential(base time.Duration, multiplier float64, maxDelay time.Duration) *Exponential {
	return &Exponential{BaseDelay: base, Multiplier: multiplier, MaxDelay: maxDelay}
}

// Delay returns the exponentially increasing delay for the given attempt.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return e.BaseDelay
	}

	d := time.Duration(float64(e.BaseDelay) * math.Pow(e.Multiplier, float64(attempt-1)))
	if e.MaxDelay > 0 && d > e.MaxDelay {
		d = e.MaxDelay
	}
	return d
}

// Jitter draws a uniform random delay between 0 and the exponential delay for
// the attempt (full jitter), which spreads retries from concurrent workers.
type Jitter struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// NewJitter creates a jitter strategy. maxDelay of 0 means no cap.
func NewJitter(base time.Duration, multiplier float64, maxDelay time.Duration) *Jitter {
	return &Jitter{BaseDelay: base, Multiplier: multiplier, MaxDelay: maxDelay}
}

// Delay returns a random delay in [0, exponential delay) for the attempt.
func (j *Jitter) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Duration(rand.Float64() * float64(j.BaseDelay))
	}

	upper := float64(j.BaseDelay) * math.Pow(j.Multiplier, float64(attempt-1))
	if j.MaxDelay > 0 && time.Duration(upper) > j.MaxDelay {
		upper = float64(j.MaxDelay)
	}
	return time.Duration(rand.Float64() * upper)
}
