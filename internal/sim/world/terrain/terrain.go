// Package terrain holds the immutable obstruction map of a square room.
package terrain

import (
	"fmt"
	"strings"

	"baseplan.ai/internal/sim/geom"
)

type Class uint8

const (
	Plain Class = iota
	Wall
	Swamp
)

func (c Class) String() string {
	switch c {
	case Plain:
		return "PLAIN"
	case Wall:
		return "WALL"
	case Swamp:
		return "SWAMP"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// Query is the read side of a terrain grid. Cells outside the grid report Wall.
type Query interface {
	Size() int
	Class(x, y int) Class
}

// Grid stores one Class per cell, row-major.
type Grid struct {
	size  int
	cells []Class
}

func NewGrid(size int) *Grid {
	if size < 0 {
		size = 0
	}
	return &Grid{size: size, cells: make([]Class, size*size)}
}

// FromCells copies cells (row-major, len = size*size) into a new grid.
func FromCells(size int, cells []Class) (*Grid, error) {
	if size <= 0 || len(cells) != size*size {
		return nil, fmt.Errorf("terrain: %d cells do not fill a %dx%d grid", len(cells), size, size)
	}
	g := NewGrid(size)
	copy(g.cells, cells)
	return g, nil
}

func (g *Grid) Size() int { return g.size }

func (g *Grid) Class(x, y int) Class {
	if x < 0 || y < 0 || x >= g.size || y >= g.size {
		return Wall
	}
	return g.cells[y*g.size+x]
}

func (g *Grid) At(c geom.Coord) Class { return g.Class(c.X, c.Y) }

func (g *Grid) Set(x, y int, c Class) {
	if x < 0 || y < 0 || x >= g.size || y >= g.size {
		return
	}
	g.cells[y*g.size+x] = c
}

// Cells returns a copy of the row-major cell slice.
func (g *Grid) Cells() []Class {
	out := make([]Class, len(g.cells))
	copy(out, g.cells)
	return out
}

const (
	glyphPlain = '.'
	glyphWall  = '#'
	glyphSwamp = '~'
)

// Parse reads a square map drawn with '.', '#' and '~'. Blank lines and
// surrounding whitespace are ignored.
func Parse(src string) (*Grid, error) {
	var rows []string
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("terrain: empty map")
	}
	size := len(rows)
	g := NewGrid(size)
	for y, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("terrain: row %d has %d cells, want %d", y, len(row), size)
		}
		for x := 0; x < size; x++ {
			switch row[x] {
			case glyphPlain:
				g.Set(x, y, Plain)
			case glyphWall:
				g.Set(x, y, Wall)
			case glyphSwamp:
				g.Set(x, y, Swamp)
			default:
				return nil, fmt.Errorf("terrain: bad glyph %q at %d,%d", row[x], x, y)
			}
		}
	}
	return g, nil
}

// String draws the grid in the format Parse reads.
func (g *Grid) String() string {
	var b strings.Builder
	b.Grow(g.size * (g.size + 1))
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			switch g.Class(x, y) {
			case Wall:
				b.WriteByte(glyphWall)
			case Swamp:
				b.WriteByte(glyphSwamp)
			default:
				b.WriteByte(glyphPlain)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
