package world

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/world/terrain"
)

// CreateSite opens a construction site. Checks run in a fixed order: target
// cell, existing match, occupant conflict, tier allowance, global site cap.
func (r *Room) CreateSite(pos geom.Coord, t structure.Type) structure.Outcome {
	if !t.Valid() || !pos.In(r.grid.Size()) || r.grid.At(pos) == terrain.Wall {
		return structure.InvalidTarget
	}
	n := r.grid.Size()
	if pos.X == 0 || pos.Y == 0 || pos.X == n-1 || pos.Y == n-1 {
		return structure.InvalidTarget
	}
	for _, s := range r.sites {
		if s.Pos == pos && s.Type == t {
			return structure.AlreadySatisfied
		}
	}
	for _, s := range r.structs {
		if s.Pos == pos && s.Type == t && s.Owner == r.cfg.Owner {
			return structure.AlreadySatisfied
		}
	}
	for _, s := range r.sites {
		if s.Pos == pos && !structure.CanShare(s.Type, t) {
			return structure.InvalidTarget
		}
	}
	for _, s := range r.structs {
		if s.Pos == pos && !structure.CanShare(s.Type, t) {
			return structure.InvalidTarget
		}
	}
	if t == structure.Extractor && pos != r.features.Mineral {
		return structure.InvalidTarget
	}
	if r.allow != nil && r.Count(t) >= r.allow.Allowance(t, r.cfg.Tier) {
		return structure.TierInsufficient
	}
	if len(r.sites) >= r.cfg.SiteLimit {
		return structure.CapacityExceeded
	}
	r.sites = append(r.sites, &Site{ID: r.newID("c"), Type: t, Pos: pos})
	return structure.OK
}

// Builders is the view of the workforce board the room needs.
type Builders interface {
	Active(baseID, role string) bool
	Release(baseID, role string)
}

// build finishes up to BuildPerTick sites, oldest first, while a builder is
// requested for this room. The request is released once no sites remain.
func (r *Room) build(b Builders) int {
	if b == nil || !b.Active(r.cfg.ID, r.cfg.BuilderRole) {
		return 0
	}
	done := 0
	for done < r.cfg.BuildPerTick && len(r.sites) > 0 {
		s := r.sites[0]
		r.sites = r.sites[1:]
		r.structs = append(r.structs, &Structure{ID: s.ID, Type: s.Type, Pos: s.Pos, Owner: r.cfg.Owner})
		done++
	}
	if len(r.sites) == 0 {
		b.Release(r.cfg.ID, r.cfg.BuilderRole)
	}
	return done
}

// Advance moves the room forward one tick: construction, then link flow.
// It returns the number of sites completed.
func (r *Room) Advance(b Builders) int {
	done := r.build(b)
	r.flowLinks()
	return done
}
