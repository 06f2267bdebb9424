// internal/runner/types.go
package runner

import (
	"sync"
	"time"
)

// Failure records the terminal error of one logical request.
type Failure struct {
	Request  int
	Attempts int
	Err      error
}

// RunResult aggregates the outcome of a whole run.
type RunResult struct {
	Succeeded int
	Failed    int
	Cancelled int
	Attempts  int
	Elapsed   time.Duration
	Failures  []Failure
}

// Total returns how many logical requests reached a terminal state.
func (r *RunResult) Total() int {
	return r.Succeeded + r.Failed + r.Cancelled
}

// resultCollector accumulates per-request outcomes from concurrent workers.
type resultCollector struct {
	mu     sync.Mutex
	result RunResult
}

func (c *resultCollector) success(attempts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Succeeded++
	c.result.Attempts += attempts
}

func (c *resultCollector) failure(request, attempts int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Failed++
	c.result.Attempts += attempts
	c.result.Failures = append(c.result.Failures, Failure{Request: request, Attempts: attempts, Err: err})
}

func (c *resultCollector) cancelled(attempts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Cancelled++
	c.result.Attempts += attempts
}

func (c *resultCollector) snapshot() RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.result
	out.Failures = append([]Failure(nil), c.result.Failures...)
	return out
}
