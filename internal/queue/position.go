package queue

import (
	"time"

	"smart-bartender/internal/domain"
)

// Position locates orderID among the active entries of the queue and
// computes its 1-based position plus cumulative ETA. Entries keep store
// order: FIFO by creation is the only ordering guarantee, never re-sorted.
// An absent id reports not found; completed and never-existed look the
// same here.
func (t Timing) Position(q []domain.QueueEntry, orderID string, now time.Time) (domain.PositionInfo, bool) {
	active := make([]domain.QueueEntry, 0, len(q))
	for _, e := range q {
		if e.Status.Active() {
			active = append(active, e)
		}
	}

	for i, e := range active {
		if e.ID != orderID {
			continue
		}
		aheadRemaining := 0
		for _, a := range active[:i] {
			aheadRemaining += t.Remaining(a, now) + t.PrepSec
		}
		thisRemaining := t.Remaining(e, now)
		est := e.EstSeconds
		if est <= 0 {
			est = t.Estimate(e.Items)
		}
		return domain.PositionInfo{
			Position:        i + 1,
			Ahead:           i,
			Status:          e.Status,
			EtaSeconds:      aheadRemaining + thisRemaining,
			EtaAheadSeconds: aheadRemaining,
			EtaThisSeconds:  thisRemaining,
			EstSeconds:      est,
		}, true
	}
	return domain.PositionInfo{}, false
}
