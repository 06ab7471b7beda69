package planner

import (
	"fmt"

	"baseplan.ai/internal/sim/base"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/planning/site"
	"baseplan.ai/internal/sim/world"
	"baseplan.ai/internal/sim/world/logic/movement"
	"baseplan.ai/internal/sim/world/terrain"
)

// SelectSite lists the wall-free size×size windows with the least swamp.
func (p *Planner) SelectSite(grid terrain.Query, size int) []site.Candidate {
	return site.Select(grid, size)
}

// ResolveCenter picks the candidate closest to both anchors over bare terrain.
func (p *Planner) ResolveCenter(grid terrain.Query, cands []site.Candidate, anchors site.Anchors) (site.Candidate, bool) {
	return site.Resolve(cands, anchors, movement.NewOracle(grid, p.costs, nil))
}

// PlaceBase selects and resolves a site in the base's room against the
// controller and the mineral, avoiding existing structures, and stores its
// center.
func (p *Planner) PlaceBase(baseID string, size int) (site.Candidate, error) {
	r, err := p.Room(baseID)
	if err != nil {
		return site.Candidate{}, err
	}
	if size <= 0 {
		size = p.tune.BaseSize
	}
	cands := p.SelectSite(r.Grid(), size)
	ctrl, mineral := r.Controller(), r.Mineral()
	anchors := site.Anchors{Governance: &ctrl, Resource: &mineral}
	c, ok := site.Resolve(cands, anchors, p.oracle(r))
	if !ok {
		return c, fmt.Errorf("place %s: no reachable %dx%d site: %w", baseID, size, size, base.ErrNotFound)
	}
	if err := p.SetBaseCenter(baseID, c.AnchorCell()); err != nil {
		return c, err
	}
	return c, nil
}

// SetBaseCenter persists the base center. A changed center drops the cached
// plan.
func (p *Planner) SetBaseCenter(baseID string, c geom.Coord) error {
	r, err := p.Room(baseID)
	if err != nil {
		return err
	}
	if !c.In(r.Size()) {
		return fmt.Errorf("center %s outside %dx%d grid: %w", c, r.Size(), r.Size(), base.ErrInvalidArgument)
	}
	st, err := p.loadState(baseID)
	if err != nil {
		return err
	}
	if st.Center == nil || *st.Center != c {
		p.cache.Invalidate(baseID)
	}
	st.Center = &c
	if err := p.store.Save(st); err != nil {
		return fmt.Errorf("set center %s: %w", baseID, err)
	}
	p.audit(baseID, "set_center", c.String())
	return nil
}

// ClearBaseCenter forgets the center; the base is re-placed on the next run
// when auto placement is on.
func (p *Planner) ClearBaseCenter(baseID string) error {
	if _, err := p.Room(baseID); err != nil {
		return err
	}
	st, err := p.loadState(baseID)
	if err != nil {
		return err
	}
	st.Center = nil
	p.cache.Invalidate(baseID)
	if err := p.store.Save(st); err != nil {
		return fmt.Errorf("clear center %s: %w", baseID, err)
	}
	p.audit(baseID, "clear_center", "")
	return nil
}

// SetAutoLayout flips the persisted no-layout flag. A base with layout
// disabled is never reconciled.
func (p *Planner) SetAutoLayout(baseID string, enabled bool) error {
	if _, err := p.Room(baseID); err != nil {
		return err
	}
	st, err := p.loadState(baseID)
	if err != nil {
		return err
	}
	st.NoLayout = !enabled
	if err := p.store.Save(st); err != nil {
		return fmt.Errorf("auto layout %s: %w", baseID, err)
	}
	p.audit(baseID, "set_auto", fmt.Sprintf("%t", enabled))
	return nil
}

// SetTier sets the room's development tier.
func (p *Planner) SetTier(baseID string, tier int) error {
	r, err := p.Room(baseID)
	if err != nil {
		return err
	}
	if tier < 1 || tier > p.tune.MaxTier {
		return fmt.Errorf("tier %d outside [1, %d]: %w", tier, p.tune.MaxTier, base.ErrInvalidArgument)
	}
	r.SetTier(tier)
	p.audit(baseID, "set_tier", fmt.Sprintf("%d", tier))
	return nil
}

// CompilePlan returns the base's plan restricted to tiers <= tier.
func (p *Planner) CompilePlan(baseID string, tier int) (*layout.Plan, error) {
	if tier < 1 {
		return nil, fmt.Errorf("tier %d: %w", tier, base.ErrInvalidArgument)
	}
	if _, err := p.Room(baseID); err != nil {
		return nil, err
	}
	st, err := p.loadState(baseID)
	if err != nil {
		return nil, err
	}
	if st.Center == nil {
		return nil, fmt.Errorf("plan %s: center: %w", baseID, base.ErrNotFound)
	}
	plan, err := p.plan(baseID, *st.Center)
	if err != nil {
		return nil, err
	}
	return plan.UpTo(tier), nil
}

// Reconcile runs one reconcile pass for the base at the current tick.
func (p *Planner) Reconcile(baseID string) (reconcile.Report, error) {
	r, err := p.Room(baseID)
	if err != nil {
		return reconcile.Report{BaseID: baseID}, err
	}
	rep, err := p.rec.Reconcile(baseID, r)
	rep.Tick = p.tick.Load()
	if err != nil {
		return rep, err
	}
	p.emitReport(rep)
	return rep, nil
}

// plan returns the full plan for a base, compiling it on a cache miss.
func (p *Planner) plan(baseID string, center geom.Coord) (*layout.Plan, error) {
	r, err := p.Room(baseID)
	if err != nil {
		return nil, err
	}
	return p.cache.Get(baseID, center, func() (*layout.Plan, error) {
		ctrl, mineral := r.Controller(), r.Mineral()
		return p.compiler.Compile(center, layout.Env{
			Terrain:    r.Grid(),
			Spatial:    r,
			Paths:      p.router(r),
			Sources:    r.Sources(),
			Mineral:    &mineral,
			Governance: &ctrl,
		})
	})
}

func (p *Planner) oracle(r *world.Room) *movement.Oracle {
	return movement.NewOracle(r.Grid(), p.costs, r.Blocked)
}

// router paths over bare terrain; plans never route around built structures.
func (p *Planner) router(r *world.Room) layout.Router {
	grid := r.Grid()
	return func(blocked func(geom.Coord) bool) layout.Pather {
		return movement.NewOracle(grid, p.costs, blocked)
	}
}
