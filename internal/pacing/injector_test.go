package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_PausesForConfiguredDelay(t *testing.T) {
	inj := New(50 * time.Millisecond)

	start := time.Now()
	err := inj.Wait(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestWait_ZeroDelayIsNoOp(t *testing.T) {
	inj := New(0)

	start := time.Now()
	require.NoError(t, inj.Wait(context.Background()))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestWait_CancelledContext(t *testing.T) {
	inj := New(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := inj.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
