package layout

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/world/terrain"
)

// Overlay is a computed layer set appended to the template after fixed and
// rule-placed slots. Layer i is assigned the tier Rule gives for index i.
type Overlay struct {
	Name   string
	Type   structure.Type
	Rule   TierRule
	Layers func(c *Context) [][]geom.Coord
}

// Context is what an overlay sees while the plan is being compiled.
type Context struct {
	Center   geom.Coord
	BaseSize int
	Env      Env

	planned map[geom.Coord][]structure.Type
}

// InFootprint reports whether pos is inside the base square.
func (c *Context) InFootprint(pos geom.Coord) bool {
	return pos.Chebyshev(c.Center) <= c.BaseSize/2
}

// PlannedOther reports whether pos already holds a planned slot of a type
// other than typ.
func (c *Context) PlannedOther(pos geom.Coord, typ structure.Type) bool {
	for _, t := range c.planned[pos] {
		if t != typ {
			return true
		}
	}
	return false
}

func (c *Context) buildable(pos geom.Coord) bool {
	n := c.Env.Terrain.Size()
	if pos.X <= 0 || pos.Y <= 0 || pos.X >= n-1 || pos.Y >= n-1 {
		return false
	}
	return c.Env.Terrain.Class(pos.X, pos.Y) != terrain.Wall
}

// Perimeter rings the footprint with ramparts. Ring k sits at Chebyshev
// distance baseSize/2 + gap + k from the center.
func Perimeter(rings, gap int, rule TierRule) Overlay {
	return Overlay{
		Name: "perimeter",
		Type: structure.Rampart,
		Rule: rule,
		Layers: func(c *Context) [][]geom.Coord {
			out := make([][]geom.Coord, 0, rings)
			for k := 0; k < rings; k++ {
				r := c.BaseSize/2 + gap + k
				var ring []geom.Coord
				for y := c.Center.Y - r; y <= c.Center.Y+r; y++ {
					for x := c.Center.X - r; x <= c.Center.X+r; x++ {
						p := geom.C(x, y)
						if p.Chebyshev(c.Center) != r || !c.buildable(p) {
							continue
						}
						ring = append(ring, p)
					}
				}
				out = append(out, ring)
			}
			return out
		},
	}
}

// Pather finds a walkable route. The returned path excludes from and ends at to.
type Pather interface {
	Path(from, to geom.Coord) ([]geom.Coord, bool)
}

// Router builds a Pather over the room terrain that treats blocked cells as
// impassable.
type Router func(blocked func(geom.Coord) bool) Pather

// plannedBlocked reports a cell outside the footprint already planned for a
// type that blocks movement. The footprint itself stays passable so routes
// can leave the center.
func (c *Context) plannedBlocked(pos geom.Coord) bool {
	if c.InFootprint(pos) {
		return false
	}
	for _, t := range c.planned[pos] {
		if !structure.Walkable(t) {
			return true
		}
	}
	return false
}

// Roads connects the center to the resource nodes (layer 0), the governance
// anchor (layer 1) and the mineral (layer 2). Routes see only terrain and the
// slots planned so far, never built structures. Cells inside the footprint or
// claimed by another planned type are dropped, and each cell appears once.
func Roads(rule TierRule) Overlay {
	return Overlay{
		Name: "roads",
		Type: structure.Road,
		Rule: rule,
		Layers: func(c *Context) [][]geom.Coord {
			if c.Env.Paths == nil {
				return nil
			}
			targets := [][]geom.Coord{c.Env.Sources, nil, nil}
			if c.Env.Governance != nil {
				targets[1] = []geom.Coord{*c.Env.Governance}
			}
			if c.Env.Mineral != nil {
				targets[2] = []geom.Coord{*c.Env.Mineral}
			}

			paths := c.Env.Paths(c.plannedBlocked)
			seen := map[geom.Coord]bool{}
			out := make([][]geom.Coord, len(targets))
			for i, group := range targets {
				for _, to := range group {
					path, ok := paths.Path(c.Center, to)
					if !ok || len(path) == 0 {
						continue
					}
					// The last cell is the target itself.
					for _, p := range path[:len(path)-1] {
						if seen[p] || c.InFootprint(p) || c.PlannedOther(p, structure.Road) || !c.buildable(p) {
							continue
						}
						seen[p] = true
						out[i] = append(out[i], p)
					}
				}
			}
			return out
		},
	}
}
