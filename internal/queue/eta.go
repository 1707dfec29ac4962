package queue

import (
	"time"

	"smart-bartender/internal/domain"
)

// Timing is the fixed linear cost model of the dispensing hardware.
// Overhead is charged once per order, PerDrink once per unit, Prep is the
// hardware reset time charged to every order waiting behind another.
type Timing struct {
	OverheadSec int
	PerDrinkSec int
	PrepSec     int
}

// Estimate maps an item list to estimated seconds:
// overhead + total_quantity * per_drink. Quantities are summed as stored
// and only the final total is clamped to at least 1, so a malformed body
// never produces a zero or negative estimate.
func (t Timing) Estimate(items []domain.ItemUnit) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	if total <= 0 {
		total = 1
	}
	return t.OverheadSec + total*t.PerDrinkSec
}

// Remaining refines the estimate for an entry already on the machine. An
// in_progress entry with a parseable startedAt counts down from its
// estimate, floored at 1; everything else reports the full estimate. A
// startedAt that does not parse fails open to the unmodified estimate.
func (t Timing) Remaining(e domain.QueueEntry, now time.Time) int {
	est := e.EstSeconds
	if est <= 0 {
		est = t.Estimate(e.Items)
	}
	if e.Status == domain.StatusInProgress {
		if started, ok := domain.ParseTime(e.StartedAt); ok {
			elapsed := int(now.Sub(started).Seconds())
			if elapsed < 0 {
				elapsed = 0
			}
			rem := est - elapsed
			if rem < 1 {
				rem = 1
			}
			return rem
		}
	}
	if est < 0 {
		return 0
	}
	return est
}
