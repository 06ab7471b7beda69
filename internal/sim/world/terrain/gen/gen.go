// Package gen produces reproducible room terrain from a seed.
package gen

import (
	"sort"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/world/logic/mathx"
	"baseplan.ai/internal/sim/world/terrain"
)

type Params struct {
	Seed int64
	Size int

	// Cluster probabilities are per grid cell of ClusterGrid blocks.
	WallClusterPermille  int
	SwampClusterPermille int
	ClusterGrid          int
	ClusterRadius        int

	SprinkleSwampPermille int

	// Exits are gaps in the border wall, centred on each side.
	ExitWidth int
}

func DefaultParams(seed int64, size int) Params {
	return Params{
		Seed:                  seed,
		Size:                  size,
		WallClusterPermille:   450,
		SwampClusterPermille:  350,
		ClusterGrid:           10,
		ClusterRadius:         3,
		SprinkleSwampPermille: 20,
		ExitWidth:             6,
	}
}

// Features are the fixed points of interest in a room.
type Features struct {
	Controller geom.Coord
	Sources    []geom.Coord
	Mineral    geom.Coord
}

func Generate(p Params) *terrain.Grid {
	g := terrain.NewGrid(p.Size)
	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			c := terrain.Plain
			switch {
			case onBorder(p, x, y):
				if !inExit(p, x, y) {
					c = terrain.Wall
				}
			case InCluster(p.Seed+101, x, y, p.ClusterGrid, p.ClusterRadius, uint64(ClampPermille(p.WallClusterPermille))):
				c = terrain.Wall
			case InCluster(p.Seed+202, x, y, p.ClusterGrid, p.ClusterRadius, uint64(ClampPermille(p.SwampClusterPermille))):
				c = terrain.Swamp
			default:
				if mathx.Hash2(p.Seed+999, x, y)%1000 < uint64(ClampPermille(p.SprinkleSwampPermille)) {
					c = terrain.Swamp
				}
			}
			g.Set(x, y, c)
		}
	}
	return g
}

func onBorder(p Params, x, y int) bool {
	return x == 0 || y == 0 || x == p.Size-1 || y == p.Size-1
}

func inExit(p Params, x, y int) bool {
	half := p.ExitWidth / 2
	mid := p.Size / 2
	if x == 0 || x == p.Size-1 {
		return y >= mid-half && y < mid-half+p.ExitWidth
	}
	return x >= mid-half && x < mid-half+p.ExitWidth
}

// PlaceFeatures picks a controller, the given number of sources and a mineral
// on plain cells away from the border. Each source keeps at least one plain
// neighbour so it can be harvested. ok is false when the room is too cramped.
func PlaceFeatures(g *terrain.Grid, seed int64, sources int) (Features, bool) {
	size := g.Size()
	type cand struct {
		c geom.Coord
		h uint64
	}
	var cands []cand
	for y := 3; y < size-3; y++ {
		for x := 3; x < size-3; x++ {
			if g.Class(x, y) != terrain.Plain || !hasOpenNeighbour(g, x, y) {
				continue
			}
			cands = append(cands, cand{c: geom.C(x, y), h: mathx.Hash2(seed+7, x, y)})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].h != cands[j].h {
			return cands[i].h < cands[j].h
		}
		return cands[i].c.Less(cands[j].c)
	})

	var picked []geom.Coord
	for _, cd := range cands {
		if len(picked) == sources+2 {
			break
		}
		far := true
		for _, p := range picked {
			if p.Chebyshev(cd.c) < 6 {
				far = false
				break
			}
		}
		if far {
			picked = append(picked, cd.c)
		}
	}
	if len(picked) < sources+2 {
		return Features{}, false
	}
	return Features{
		Controller: picked[0],
		Sources:    append([]geom.Coord(nil), picked[1:1+sources]...),
		Mineral:    picked[1+sources],
	}, true
}

func hasOpenNeighbour(g *terrain.Grid, x, y int) bool {
	for _, d := range geom.Neighbors8 {
		if g.Class(x+d.X, y+d.Y) != terrain.Wall {
			return true
		}
	}
	return false
}

func ClampPermille(v int) int {
	return mathx.ClampInt(v, 0, 1000)
}

func InCluster(seed int64, x, y, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := mathx.FloorDiv(x, grid)
	gy := mathx.FloorDiv(y, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := mathx.Hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oy := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cy := cgy*grid + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}
