package planner

import (
	"errors"
	"fmt"

	"baseplan.ai/internal/sim/base"
	"baseplan.ai/internal/sim/world"
)

// Step advances every room by one tick. Rooms run in id order; on reconcile
// ticks each base is placed if needed, drained from its delay queue,
// reconciled and has its links reassigned before construction advances.
func (p *Planner) Step(tick uint64) {
	p.tick.Store(tick)
	every := uint64(p.tune.ReconcileEveryTicks)
	for _, id := range p.order {
		r := p.rooms[id]
		if every > 0 && tick%every == 0 {
			p.reconcileRoom(id, r)
		}
		r.Advance(p.board)
	}
	if n := uint64(p.tune.SnapshotEveryTicks); n > 0 && tick > 0 && tick%n == 0 {
		if err := p.pushSnapshot(tick); err != nil {
			p.logf("tick=%d %v", tick, err)
		}
	}
	p.tick.Store(tick + 1)
}

func (p *Planner) reconcileRoom(id string, r *world.Room) {
	st, err := p.loadState(id)
	if err != nil {
		p.logf("tick=%d base=%s load: %v", p.tick.Load(), id, err)
		return
	}
	if st.Center == nil && p.tune.AutoPlace && !st.NoLayout && r.Controlled() {
		if _, err := p.PlaceBase(id, p.tune.BaseSize); err != nil {
			p.logf("tick=%d base=%s place: %v", p.tick.Load(), id, err)
			return
		}
	}

	// Drain what earlier passes deferred first; a pass never retries its own
	// deferrals.
	if st.Center != nil && !st.NoLayout && r.Controlled() {
		rr, err := p.retry.Retry(id, r, p.tune.DelayRetryPerTick)
		if err != nil {
			p.logf("tick=%d base=%s retry: %v", p.tick.Load(), id, err)
		} else if rr.Attempted > 0 {
			p.emitRetry(p.tick.Load(), rr)
		}
	}

	if _, err := p.Reconcile(id); err != nil {
		if !errors.Is(err, base.ErrNotOwner) && !errors.Is(err, base.ErrNotFound) {
			p.logf("tick=%d base=%s reconcile: %v", p.tick.Load(), id, err)
		}
		return
	}

	if st, err = p.loadState(id); err == nil {
		r.AssignLinks(st.Center)
	}
}

func (p *Planner) pushSnapshot(tick uint64) error {
	if p.snapshotSink == nil {
		return errors.New("snapshot sink not configured")
	}
	snap, err := p.ExportSnapshot(tick)
	if err != nil {
		return fmt.Errorf("snapshot export: %w", err)
	}
	select {
	case p.snapshotSink <- snap:
		return nil
	default:
		return errors.New("snapshot sink backpressure")
	}
}
