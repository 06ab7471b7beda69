package geom

import "fmt"

// Coord is an integer grid cell. X is the column, Y is the row.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func C(x, y int) Coord { return Coord{X: x, Y: y} }

func (c Coord) Add(o Coord) Coord { return Coord{X: c.X + o.X, Y: c.Y + o.Y} }
func (c Coord) Sub(o Coord) Coord { return Coord{X: c.X - o.X, Y: c.Y - o.Y} }

func (c Coord) String() string { return fmt.Sprintf("%d,%d", c.X, c.Y) }

// In reports whether c lies inside a square grid of the given side.
func (c Coord) In(size int) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < size && c.Y < size
}

// Chebyshev is the king-move distance, which is also the range metric used for
// "within radius" queries.
func (c Coord) Chebyshev(o Coord) int {
	dx := abs(c.X - o.X)
	dy := abs(c.Y - o.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// Less orders coordinates row-major (Y first, then X).
func (c Coord) Less(o Coord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// Neighbors8 are the eight surrounding offsets in a fixed order, starting at
// the top and going clockwise.
var Neighbors8 = [8]Coord{
	{X: 0, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 0}, {X: 1, Y: 1},
	{X: 0, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: 0}, {X: -1, Y: -1},
}

// Point is a coordinate that may sit on a half cell. Footprint centers of even
// sized squares land between cells, so they cannot be a Coord.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Integral() (Coord, bool) {
	x, y := int(p.X), int(p.Y)
	if float64(x) != p.X || float64(y) != p.Y {
		return Coord{}, false
	}
	return Coord{X: x, Y: y}, true
}

func (p Point) String() string { return fmt.Sprintf("%g,%g", p.X, p.Y) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
