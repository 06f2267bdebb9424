// internal/runner/budget.go
package runner

import "sync"

// Budget is the shared request allowance drawn down by all workers. A
// worker that fails to acquire a slot has no work left and exits.
type Budget struct {
	mu        sync.Mutex
	remaining int
}

// NewBudget creates a budget of n logical requests.
func NewBudget(n int) *Budget {
	return &Budget{remaining: n}
}

// Acquire claims one logical request from the budget. It returns false
// once the budget is spent.
func (b *Budget) Acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Remaining reports the unclaimed allowance.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}
