package reconcile

import (
	"fmt"
	"log"

	"baseplan.ai/internal/sim/base"
	"baseplan.ai/internal/sim/structure"
)

// Retrier drains a base's delay queue between reconcile runs.
type Retrier struct {
	Store     base.Store
	Workforce Workforce
	Logger    *log.Logger

	BuilderRole string
}

// Retry attempts up to limit queued entries in order. Entries that were placed
// or can no longer be placed leave the queue; a capacity refusal stops the
// pass and keeps that entry and everything after it.
func (r *Retrier) Retry(baseID string, room Room, limit int) (RetryReport, error) {
	rep := RetryReport{BaseID: baseID}
	st, err := r.Store.Load(baseID)
	if err != nil {
		return rep, err
	}
	if len(st.DelayQueue) == 0 || limit <= 0 {
		rep.Remaining = len(st.DelayQueue)
		return rep, nil
	}

	keep := make([]base.DelayEntry, 0, len(st.DelayQueue))
	i := 0
loop:
	for ; i < len(st.DelayQueue) && rep.Attempted < limit; i++ {
		e := st.DelayQueue[i]
		rep.Attempted++
		switch out := room.CreateSite(e.Pos, e.Type); out {
		case structure.OK:
			rep.Placed++
		case structure.AlreadySatisfied, structure.TierInsufficient, structure.InvalidTarget:
			rep.Dropped++
		case structure.CapacityExceeded:
			break loop
		default:
			rep.Dropped++
			if r.Logger != nil {
				r.Logger.Printf("retry base=%s entry=%q code=%d", baseID, e.String(), int(out))
			}
		}
	}
	keep = append(keep, st.DelayQueue[i:]...)
	st.DelayQueue = keep
	rep.Remaining = len(keep)

	if rep.Placed > 0 || rep.Dropped > 0 {
		if err := r.Store.Save(st); err != nil {
			return rep, fmt.Errorf("retry %s: save: %w", baseID, err)
		}
	}
	if rep.Placed > 0 && r.Workforce != nil {
		r.Workforce.RequestRole(baseID, r.BuilderRole)
	}
	return rep, nil
}
