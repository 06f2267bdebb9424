// Package retry classifies failed exchange outcomes and decides whether a
// logical request gets another attempt.
package retry

import (
	"time"

	"apirush/internal/backoff"
	"apirush/internal/config"
	"apirush/internal/utils"
)

// Decision is the outcome of consulting the policy after a failed attempt.
type Decision struct {
	Retry bool
	After time.Duration
}

var giveUp = Decision{}

// Policy decides retryability from the error classification and the
// configured status set, and derives the wait from the backoff strategy.
// Policy is stateless; the caller tracks the attempt index per logical
// request.
type Policy struct {
	maxRetries        int
	strategy          backoff.Strategy
	retryableStatuses map[int]struct{}
}

// NewPolicy creates a retry policy. maxRetries is the number of retries
// after the initial attempt, so a logical request makes at most
// maxRetries+1 attempts. statuses lists the HTTP status codes treated as
// retryable; transport and proxy-exhaustion failures are always retryable.
func NewPolicy(maxRetries int, strategy backoff.Strategy, statuses []int) *Policy {
	set := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return &Policy{maxRetries: maxRetries, strategy: strategy, retryableStatuses: set}
}

// NewPolicyFromConfig builds the policy and its backoff strategy from the
// retry configuration.
func NewPolicyFromConfig(cfg config.RetryConfig) *Policy {
	var strategy backoff.Strategy
	switch cfg.Backoff {
	case config.BackoffExponential:
		strategy = backoff.NewExponential(cfg.Delay.Std(), cfg.Multiplier, cfg.MaxDelay.Std())
	case config.BackoffJitter:
		strategy = backoff.NewJitter(cfg.Delay.Std(), cfg.Multiplier, cfg.MaxDelay.Std())
	default:
		strategy = backoff.NewFixed(cfg.Delay.Std())
	}
	return NewPolicy(cfg.MaxRetries, strategy, cfg.RetryableStatuses)
}

// MaxRetries returns the retry ceiling.
func (p *Policy) MaxRetries() int {
	return p.maxRetries
}

// Decide classifies err after the given 0-based attempt index and returns
// whether to retry and how long to wait first. Once attempt reaches the
// ceiling any failure is terminal; non-retryable failures are terminal
// immediately.
func (p *Policy) Decide(attempt int, err error) Decision {
	if err == nil || attempt >= p.maxRetries {
		return giveUp
	}

	if !p.classify(err) {
		return giveUp
	}

	var after time.Duration
	if p.strategy != nil {
		after = p.strategy.Delay(attempt + 1)
	}
	return Decision{Retry: true, After: after}
}

func (p *Policy) classify(err error) bool {
	if status, ok := utils.StatusOf(err); ok {
		_, retryable := p.retryableStatuses[status]
		return retryable
	}
	return utils.IsRetryable(err)
}
