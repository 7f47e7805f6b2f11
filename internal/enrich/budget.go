package enrich

import (
	"sync"
)

// Budget is the run-scoped call allowance for the secondary provider. It is
// a two-state machine {active, limited} with a single one-way transition:
// hitting the cap or seeing an auth/quota failure flips it to limited, and
// it never flips back within a run. One instance is constructor-injected
// into the Enricher and shared by every worker.
type Budget struct {
	mu      sync.Mutex
	cap     int // 0 = no limit
	calls   int
	limited bool
}

// NewBudget creates a Budget with the given call cap. A cap of 0 or less
// means no limit.
func NewBudget(cap int) *Budget {
	if cap < 0 {
		cap = 0
	}
	return &Budget{cap: cap}
}

// Acquire consumes one call from the budget. It returns false without
// consuming anything once the budget is limited; reaching the cap performs
// the one-way transition to the limited state.
func (b *Budget) Acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limited {
		return false
	}
	if b.cap > 0 && b.calls >= b.cap {
		b.limited = true
		return false
	}
	b.calls++
	return true
}

// Limit performs the one-way transition to the limited state, regardless of
// how many calls remain. Used on auth/quota failures to avoid burning calls
// against a guaranteed-failing credential.
func (b *Budget) Limit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limited = true
}

// Limited reports whether the budget is in the limited state.
func (b *Budget) Limited() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limited
}

// Calls returns the number of calls consumed so far.
func (b *Budget) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
