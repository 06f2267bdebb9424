// Package schedule gates run start on a configured wall-clock instant.
package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"apirush/internal/utils"
)

// Scheduler holds a run until its start time arrives.
type Scheduler struct {
	logger zerolog.Logger
}

// New creates a scheduler.
func New() *Scheduler {
	return &Scheduler{logger: utils.NewComponentLogger("schedule")}
}

// WaitUntil blocks until the given instant. A zero or past instant returns
// immediately. Cancellation before the instant yields a schedule-cancelled
// error wrapping the context error.
func (s *Scheduler) WaitUntil(ctx context.Context, at time.Time) error {
	if at.IsZero() {
		return nil
	}

	remaining := time.Until(at)
	if remaining <= 0 {
		return nil
	}

	s.logger.Info().
		Time("start_at", at).
		Dur("remaining", remaining).
		Msg("holding until scheduled start")

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return utils.NewScheduleCancelled(ctx.Err())
	}
}
