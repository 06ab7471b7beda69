// Package reconcile drives a room toward its compiled plan. Slot state is never
// stored: every run re-reads the world, so runs are idempotent and can be
// interrupted at any point.
package reconcile

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"baseplan.ai/internal/sim/base"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/structure"
)

// PlanFunc returns the full compiled plan for a base centered at center.
type PlanFunc func(baseID string, center geom.Coord) (*layout.Plan, error)

type Reconciler struct {
	Store     base.Store
	Plans     PlanFunc
	Policy    Policy
	Workforce Workforce
	Logger    *log.Logger

	BuilderRole      string
	CriticalGoodsMin int
}

// Reconcile runs one pass for baseID. Only ErrNotOwner and ErrNotFound (and
// storage faults) are returned; per-slot problems land in the report, the
// delay queue or the log.
func (r *Reconciler) Reconcile(baseID string, room Room) (Report, error) {
	rep := Report{RunID: uuid.NewString(), BaseID: baseID}

	st, err := r.Store.Load(baseID)
	if err != nil && !errors.Is(err, base.ErrNotFound) {
		return rep, err
	}
	if st.NoLayout || !room.Controlled() {
		return rep, fmt.Errorf("reconcile %s: %w", baseID, base.ErrNotOwner)
	}
	if st.Center == nil {
		return rep, fmt.Errorf("reconcile %s: center: %w", baseID, base.ErrNotFound)
	}
	st.ID = baseID

	plan, err := r.Plans(baseID, *st.Center)
	if err != nil {
		return rep, fmt.Errorf("reconcile %s: %w", baseID, err)
	}

	tier := room.Tier()
	rep.Tier = tier
	if tier == 1 {
		rep.Destroyed = append(rep.Destroyed, r.purge(baseID, room)...)
	}

	queued := false
	for _, slot := range plan.UpTo(tier).Slots() {
		if r.Policy.Critical(slot.Type) {
			rep.Destroyed = append(rep.Destroyed, r.clearCritical(baseID, room, slot)...)
		}

		out := room.CreateSite(slot.Pos, slot.Type)
		switch out {
		case structure.OK:
			rep.Placed++
		case structure.AlreadySatisfied:
			rep.Satisfied++
		case structure.CapacityExceeded:
			rep.Deferred++
			if st.Enqueue(base.DelayEntry{Pos: slot.Pos, Type: slot.Type}) {
				queued = true
			}
		case structure.TierInsufficient:
			rep.Skipped++
		case structure.InvalidTarget:
			rep.Blocked++
		default:
			rep.Failures = append(rep.Failures, Failure{Pos: slot.Pos, Type: slot.Type, Code: int(out)})
			r.logf("reconcile base=%s pos=%s type=%s code=%d", baseID, slot.Pos, slot.Type, int(out))
		}
	}

	if queued {
		if err := r.Store.Save(st); err != nil {
			return rep, fmt.Errorf("reconcile %s: save: %w", baseID, err)
		}
	}
	if rep.Placed > 0 {
		r.Workforce.RequestRole(baseID, r.BuilderRole)
		rep.BuilderRequested = true
	}
	return rep, nil
}

// clearCritical removes a foreign critical structure squatting on a planned
// cell so the planned one can be built. Boundary types are left alone.
func (r *Reconciler) clearCritical(baseID string, room Room, slot layout.Slot) []string {
	var out []string
	for _, s := range room.StructuresAt(slot.Pos) {
		if s.Type != slot.Type || r.Policy.Boundary(s.Type) || !room.IsForeignOwned(s.ID) {
			continue
		}
		if !r.Policy.DestroyWhenForeign(s.Type) && room.StoredGoods(s.ID, Energy) > r.CriticalGoodsMin {
			continue
		}
		if err := room.Destroy(s.ID); err != nil {
			r.logf("reconcile base=%s destroy %s %s: %v", baseID, s.Type, s.ID, err)
			continue
		}
		out = append(out, s.ID)
	}
	return out
}

// purge clears a freshly claimed room of everything foreign except boundary
// structures and critical ones still holding goods.
func (r *Reconciler) purge(baseID string, room Room) []string {
	var out []string
	for _, s := range room.Structures() {
		if !room.IsForeignOwned(s.ID) || r.Policy.Boundary(s.Type) {
			continue
		}
		if r.Policy.Critical(s.Type) && room.StoredGoods(s.ID, AllGoods) > r.CriticalGoodsMin {
			continue
		}
		if err := room.Destroy(s.ID); err != nil {
			r.logf("purge base=%s destroy %s %s: %v", baseID, s.Type, s.ID, err)
			continue
		}
		out = append(out, s.ID)
	}
	return out
}

func (r *Reconciler) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
