// Package site chooses where a base footprint goes: Select finds every
// obstacle-free square with the least swamp, Resolve picks one of them by
// travel distance.
package site

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/world/terrain"
)

// Candidate is one size×size window free of walls. Corner is the bottom-right
// cell of the window.
type Candidate struct {
	Corner geom.Coord `json:"corner"`
	Size   int        `json:"size"`
	Cost   int        `json:"cost"`
}

// Center is the middle of the window. Even sizes land on a half cell.
func (c Candidate) Center() geom.Point {
	half := float64(c.Size) / 2
	return geom.Point{
		X: float64(c.Corner.X) - half + 0.5,
		Y: float64(c.Corner.Y) - half + 0.5,
	}
}

// AnchorCell is the integer cell that stands in for the center wherever a real
// cell is needed: the center itself for odd sizes, the cell up-left of it for
// even sizes.
func (c Candidate) AnchorCell() geom.Coord {
	return geom.C(c.Corner.X-c.Size/2, c.Corner.Y-c.Size/2)
}

// Contains reports whether p lies inside the window.
func (c Candidate) Contains(p geom.Coord) bool {
	return p.X > c.Corner.X-c.Size && p.X <= c.Corner.X &&
		p.Y > c.Corner.Y-c.Size && p.Y <= c.Corner.Y
}

type cell struct {
	run   int // side of the largest wall-free square ending here
	swamp int // swamp cells in the rectangle (0,0)..here
}

// Select returns every size×size wall-free window whose swamp count equals the
// minimum over all such windows, in row-major order of their bottom-right
// corner. It never returns nil.
func Select(grid terrain.Query, size int) []Candidate {
	out := []Candidate{}
	n := grid.Size()
	if size <= 0 || size > n {
		return out
	}

	dp := make([]cell, n*n)
	at := func(x, y int) cell {
		if x < 0 || y < 0 {
			return cell{}
		}
		return dp[y*n+x]
	}

	best := -1
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			top, left, topLeft := at(x, y-1), at(x-1, y), at(x-1, y-1)

			cur := cell{swamp: top.swamp + left.swamp - topLeft.swamp}
			switch grid.Class(x, y) {
			case terrain.Wall:
				cur.run = 0
			case terrain.Swamp:
				cur.swamp++
				fallthrough
			default:
				cur.run = min(top.run, left.run, topLeft.run) + 1
			}
			dp[y*n+x] = cur

			if cur.run < size {
				continue
			}
			cost := cur.swamp - at(x, y-size).swamp - at(x-size, y).swamp + at(x-size, y-size).swamp
			switch {
			case best < 0 || cost < best:
				best = cost
				out = append(out[:0], Candidate{Corner: geom.C(x, y), Size: size, Cost: cost})
			case cost == best:
				out = append(out, Candidate{Corner: geom.C(x, y), Size: size, Cost: cost})
			}
		}
	}
	return out
}
