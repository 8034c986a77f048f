package resilience

import "sync"

// ErrorBudget counts transient failures and trips once a fixed bound is reached.
// Unlike a circuit breaker it never half-opens on its own; only Reset re-arms it.
type ErrorBudget struct {
	max int

	mu    sync.RWMutex
	count int
	total int64
}

// NewErrorBudget creates a budget that is exhausted after max failures
func NewErrorBudget(max int) *ErrorBudget {
	if max <= 0 {
		max = 1
	}
	return &ErrorBudget{max: max}
}

// Record counts one failure and reports whether the budget is now exhausted
func (b *ErrorBudget) Record() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	b.total++
	return b.count >= b.max
}

// Exhausted reports whether count >= max
func (b *ErrorBudget) Exhausted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count >= b.max
}

// Count returns the failures recorded since the last reset
func (b *ErrorBudget) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Max returns the bound
func (b *ErrorBudget) Max() int {
	return b.max
}

// Total returns every failure ever recorded, across resets
func (b *ErrorBudget) Total() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}

// Reset re-arms the budget
func (b *ErrorBudget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count = 0
}
