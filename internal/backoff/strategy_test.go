package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed_Delay(t *testing.T) {
	fixed := NewFixed(250 * time.Millisecond)

	assert.Equal(t, 250*time.Millisecond, fixed.Delay(1))
	assert.Equal(t, 250*time.Millisecond, fixed.Delay(2))
	assert.Equal(t, 250*time.Millisecond, fixed.Delay(7))
}

func TestExponential_DelayGrowth(t *testing.T) {
	exp := NewExponential(100*time.Millisecond, 2.0, 0)

	assert.Equal(t, 100*time.Millisecond, exp.Delay(1))
	assert.Equal(t, 200*time.Millisecond, exp.Delay(2))
	assert.Equal(t, 400*time.Millisecond, exp.Delay(3))
	assert.Equal(t, 800*time.Millisecond, exp.Delay(4))
}

func TestExponential_MaxDelayCap(t *testing.T) {
	exp := NewExponential(100*time.Millisecond, 2.0, 300*time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, exp.Delay(1))
	assert.Equal(t, 200*time.Millisecond, exp.Delay(2))
	assert.Equal(t, 300*time.Millisecond, exp.Delay(3))
	assert.Equal(t, 300*time.Millisecond, exp.Delay(10))
}

func TestExponential_InvalidAttempt(t *testing.T) {
	exp := NewExponential(100*time.Millisecond, 2.0, 0)

	assert.Equal(t, 100*time.Millisecond, exp.Delay(0))
	assert.Equal(t, 100*time.Millisecond, exp.Delay(-3))
}

func TestJitter_StaysWithinBounds(t *testing.T) {
	jitter := NewJitter(100*time.Millisecond, 2.0, 0)

	for attempt := 1; attempt <= 5; attempt++ {
		upper := 100 * time.Millisecond * (1 << (attempt - 1))
		for i := 0; i < 50; i++ {
			d := jitter.Delay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.Less(t, d, upper)
		}
	}
}

func TestJitter_RespectsMaxDelay(t *testing.T) {
	jitter := NewJitter(100*time.Millisecond, 2.0, 150*time.Millisecond)

	for i := 0; i < 100; i++ {
		assert.Less(t, jitter.Delay(8), 150*time.Millisecond)
	}
}
