package pipeline

import "time"

// Default stage budgets. The fetch budget is the upper end of the
// research range; SERP-only research uses the lower end.
const (
	DefaultSerpBudget     = 45 * time.Second
	DefaultFetchBudget    = 75 * time.Second
	DefaultBriefBudget    = 90 * time.Second
	DefaultDraftBudget    = 180 * time.Second
	DefaultValidateBudget = 15 * time.Second
	DefaultHumanizeBudget = 90 * time.Second
	DefaultOneShotBudget  = 10 * time.Minute
)

// TimeBudget tracks the wall-clock deadline of a stage and caps the
// timeouts handed to individual external calls so the stage finishes
// inside its budget.
type TimeBudget struct {
	deadline time.Time
	now      func() time.Time
}

// NewTimeBudget starts a budget of d from now.
func NewTimeBudget(d time.Duration) *TimeBudget {
	return newTimeBudgetAt(d, time.Now)
}

func newTimeBudgetAt(d time.Duration, now func() time.Time) *TimeBudget {
	return &TimeBudget{deadline: now().Add(d), now: now}
}

// Remaining returns the time left in the budget, never negative.
func (b *TimeBudget) Remaining() time.Duration {
	r := b.deadline.Sub(b.now())
	if r < 0 {
		return 0
	}
	return r
}

// Exhausted reports whether the budget has run out.
func (b *TimeBudget) Exhausted() bool {
	return b.Remaining() == 0
}

// Cap bounds a requested call timeout by the remaining budget. When the
// budget is nearly spent the call gets what is left minus a small safety
// margin, with a 1s floor; otherwise the request is honored up to the
// remaining budget minus margin, with a 5s floor.
func (b *TimeBudget) Cap(requested time.Duration) time.Duration {
	remaining := b.Remaining()

	if remaining < 10*time.Second {
		capped := remaining - 2*time.Second
		if capped < time.Second {
			return time.Second
		}
		return capped
	}

	capped := requested
	if limit := remaining - 5*time.Second; capped > limit {
		capped = limit
	}
	if capped < 5*time.Second {
		return 5 * time.Second
	}
	return capped
}
