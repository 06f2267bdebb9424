package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"apirush/internal/backoff"
	"apirush/internal/config"
	"apirush/internal/utils"
)

var defaultStatuses = []int{429, 500, 502, 503, 504}

func TestDecide_TransportErrorRetries(t *testing.T) {
	p := NewPolicy(3, backoff.NewFixed(100*time.Millisecond), defaultStatuses)
	err := utils.NewTransportError(errors.New("connection reset"))

	d := p.Decide(0, err)
	assert.True(t, d.Retry)
	assert.Equal(t, 100*time.Millisecond, d.After)
}

func TestDecide_RetryableStatusUpToCeiling(t *testing.T) {
	p := NewPolicy(3, backoff.NewFixed(time.Millisecond), defaultStatuses)
	err := utils.NewHTTPStatusError(503, "https://api.example.com")

	assert.True(t, p.Decide(0, err).Retry)
	assert.True(t, p.Decide(1, err).Retry)
	assert.True(t, p.Decide(2, err).Retry)
	assert.False(t, p.Decide(3, err).Retry, "ceiling reached")
}

func TestDecide_NonRetryableStatusGivesUpImmediately(t *testing.T) {
	p := NewPolicy(3, backoff.NewFixed(time.Millisecond), defaultStatuses)
	err := utils.NewHTTPStatusError(499, "https://api.example.com")

	d := p.Decide(0, err)
	assert.False(t, d.Retry, "499 is outside the retryable set")
}

func TestDecide_ProxyExhaustedIsRetryable(t *testing.T) {
	p := NewPolicy(2, backoff.NewFixed(time.Millisecond), defaultStatuses)
	err := utils.NewProxyExhausted("rotating", nil)

	assert.True(t, p.Decide(0, err).Retry)
	assert.False(t, p.Decide(2, err).Retry)
}

func TestDecide_CustomStatusSet(t *testing.T) {
	p := NewPolicy(3, backoff.NewFixed(time.Millisecond), []int{418})

	assert.True(t, p.Decide(0, utils.NewHTTPStatusError(418, "u")).Retry)
	assert.False(t, p.Decide(0, utils.NewHTTPStatusError(503, "u")).Retry,
		"503 not in the configured set")
}

func TestDecide_ZeroMaxRetries(t *testing.T) {
	p := NewPolicy(0, backoff.NewFixed(time.Millisecond), defaultStatuses)
	err := utils.NewTransportError(errors.New("timeout"))

	assert.False(t, p.Decide(0, err).Retry)
}

func TestDecide_UnclassifiedErrorIsTerminal(t *testing.T) {
	p := NewPolicy(3, backoff.NewFixed(time.Millisecond), defaultStatuses)

	assert.False(t, p.Decide(0, errors.New("arbitrary failure")).Retry)
}

func TestDecide_ExponentialBackoffProgression(t *testing.T) {
	p := NewPolicy(3, backoff.NewExponential(100*time.Millisecond, 2.0, 0), defaultStatuses)
	err := utils.NewHTTPStatusError(503, "u")

	assert.Equal(t, 100*time.Millisecond, p.Decide(0, err).After)
	assert.Equal(t, 200*time.Millisecond, p.Decide(1, err).After)
	assert.Equal(t, 400*time.Millisecond, p.Decide(2, err).After)
}

func TestNewPolicyFromConfig(t *testing.T) {
	p := NewPolicyFromConfig(config.RetryConfig{
		MaxRetries:        2,
		Backoff:           config.BackoffExponential,
		Delay:             config.Duration(50 * time.Millisecond),
		Multiplier:        2.0,
		RetryableStatuses: []int{503},
	})

	assert.Equal(t, 2, p.MaxRetries())
	d := p.Decide(1, utils.NewHTTPStatusError(503, "u"))
	assert.True(t, d.Retry)
	assert.Equal(t, 100*time.Millisecond, d.After)
}
