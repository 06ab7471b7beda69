package layout

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

// rulePlacer resolves Computed offsets. It remembers which resource nodes have
// been served so each node gets at most one link and one container per plan.
type rulePlacer struct {
	ctx    *Context
	radius int

	harvest    map[int]geom.Coord
	linked     map[int]bool
	contained  map[int]bool
	extracting bool
}

func (r *rulePlacer) place(typ structure.Type) (geom.Coord, bool) {
	switch typ {
	case structure.Link:
		return r.link()
	case structure.Container:
		return r.container()
	case structure.Extractor:
		return r.extractor()
	default:
		return geom.Coord{}, false
	}
}

func (r *rulePlacer) link() (geom.Coord, bool) {
	if r.linked == nil {
		r.linked = map[int]bool{}
	}
	for i, node := range r.ctx.Env.Sources {
		if r.linked[i] {
			continue
		}
		h, ok := r.harvestPos(i)
		if !ok {
			continue
		}
		pos, ok := r.freeAround(h, func(p geom.Coord) bool {
			return p != node && len(r.ctx.planned[p]) == 0
		})
		if !ok {
			continue
		}
		if r.servedElsewhere(node, r.radius, structure.Link, pos) {
			continue
		}
		r.linked[i] = true
		return pos, true
	}
	return geom.Coord{}, false
}

func (r *rulePlacer) container() (geom.Coord, bool) {
	if r.contained == nil {
		r.contained = map[int]bool{}
	}
	for i, node := range r.ctx.Env.Sources {
		if r.contained[i] {
			continue
		}
		h, ok := r.harvestPos(i)
		if !ok {
			continue
		}
		if r.servedElsewhere(node, 1, structure.Container, h) {
			continue
		}
		r.contained[i] = true
		return h, true
	}
	return geom.Coord{}, false
}

// servedElsewhere reports an existing typ near node that this plan did not
// put there. One standing on want or on a cell already planned for typ is
// the plan's own and does not count, so compiling again after it is built
// gives the same plan.
func (r *rulePlacer) servedElsewhere(node geom.Coord, radius int, typ structure.Type, want geom.Coord) bool {
	sp := r.ctx.Env.Spatial
	if sp == nil {
		return false
	}
	for _, p := range sp.Within(node, radius, typ) {
		if p == want || r.plannedAs(p, typ) {
			continue
		}
		return true
	}
	return false
}

func (r *rulePlacer) plannedAs(pos geom.Coord, typ structure.Type) bool {
	for _, t := range r.ctx.planned[pos] {
		if t == typ {
			return true
		}
	}
	return false
}

func (r *rulePlacer) extractor() (geom.Coord, bool) {
	if r.extracting || r.ctx.Env.Mineral == nil {
		return geom.Coord{}, false
	}
	r.extracting = true
	return *r.ctx.Env.Mineral, true
}

// harvestPos is the first free cell around resource node i. The answer is
// memoised so links and containers agree on it.
func (r *rulePlacer) harvestPos(i int) (geom.Coord, bool) {
	if h, ok := r.harvest[i]; ok {
		return h, true
	}
	node := r.ctx.Env.Sources[i]
	h, ok := r.freeAround(node, func(p geom.Coord) bool {
		for _, t := range r.ctx.planned[p] {
			if t != structure.Container && t != structure.Road {
				return false
			}
		}
		return true
	})
	if ok {
		r.harvest[i] = h
	}
	return h, ok
}

func (r *rulePlacer) freeAround(center geom.Coord, accept func(geom.Coord) bool) (geom.Coord, bool) {
	for _, d := range geom.Neighbors8 {
		p := center.Add(d)
		if r.ctx.buildable(p) && accept(p) {
			return p, true
		}
	}
	return geom.Coord{}, false
}
