package movement

import (
	"testing"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/world/terrain"
)

func mustParse(t *testing.T, src string) *terrain.Grid {
	t.Helper()
	g, err := terrain.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return g
}

func TestPathLength_Open(t *testing.T) {
	g := terrain.NewGrid(10)
	o := NewOracle(g, DefaultCosts(), nil)
	n, ok := o.PathLength(geom.C(1, 1), geom.C(6, 3))
	if !ok || n != 5 {
		t.Fatalf("got n=%d ok=%v want 5 true", n, ok)
	}
	if n, ok := o.PathLength(geom.C(4, 4), geom.C(4, 4)); !ok || n != 0 {
		t.Fatalf("same cell: n=%d ok=%v", n, ok)
	}
}

func TestPath_AroundWall(t *testing.T) {
	g := mustParse(t, `
.....
.###.
.#.#.
.###.
.....
`)
	o := NewOracle(g, DefaultCosts(), nil)
	if _, ok := o.Path(geom.C(0, 0), geom.C(2, 2)); ok {
		t.Fatalf("enclosed cell must be unreachable")
	}
	p, ok := o.Path(geom.C(0, 2), geom.C(4, 2))
	if !ok {
		t.Fatalf("expected path around the box")
	}
	for _, c := range p {
		if g.At(c) == terrain.Wall {
			t.Fatalf("path crosses wall at %v", c)
		}
	}
	if p[len(p)-1] != geom.C(4, 2) {
		t.Fatalf("path must end at target, got %v", p[len(p)-1])
	}
}

func TestPath_PrefersPlainOverSwamp(t *testing.T) {
	g := mustParse(t, `
.....
.~~~.
.~~~.
.~~~.
.....
`)
	o := NewOracle(g, DefaultCosts(), nil)
	p, ok := o.Path(geom.C(0, 2), geom.C(4, 2))
	if !ok {
		t.Fatalf("expected a path")
	}
	for _, c := range p {
		if g.At(c) == terrain.Swamp {
			t.Fatalf("path should skirt the swamp, stepped on %v", c)
		}
	}
}

func TestPath_BlockedCellsExceptDestination(t *testing.T) {
	g := terrain.NewGrid(3)
	blocked := map[geom.Coord]bool{geom.C(1, 0): true, geom.C(1, 1): true, geom.C(1, 2): true}
	o := NewOracle(g, DefaultCosts(), func(c geom.Coord) bool { return blocked[c] })
	if _, ok := o.Path(geom.C(0, 1), geom.C(2, 1)); ok {
		t.Fatalf("blocked column must cut the grid")
	}
	if n, ok := o.PathLength(geom.C(0, 1), geom.C(1, 1)); !ok || n != 1 {
		t.Fatalf("blocked destination should still be reachable: n=%d ok=%v", n, ok)
	}
}

func TestPath_Deterministic(t *testing.T) {
	g := terrain.NewGrid(12)
	o := NewOracle(g, DefaultCosts(), nil)
	a, _ := o.Path(geom.C(0, 0), geom.C(11, 7))
	b, _ := o.Path(geom.C(0, 0), geom.C(11, 7))
	if len(a) != len(b) {
		t.Fatalf("length differs")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}
