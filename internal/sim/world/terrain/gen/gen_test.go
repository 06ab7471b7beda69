package gen

import (
	"testing"

	"baseplan.ai/internal/sim/world/terrain"
)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(DefaultParams(1337, 50))
	b := Generate(DefaultParams(1337, 50))
	if a.String() != b.String() {
		t.Fatalf("same seed produced different terrain")
	}
	c := Generate(DefaultParams(1338, 50))
	if a.String() == c.String() {
		t.Fatalf("different seeds produced identical terrain")
	}
}

func TestGenerateBorderHasExits(t *testing.T) {
	p := DefaultParams(5, 50)
	g := Generate(p)
	if g.Class(0, 0) != terrain.Wall || g.Class(49, 49) != terrain.Wall {
		t.Fatalf("corners must be walls")
	}
	if g.Class(25, 0) == terrain.Wall || g.Class(0, 25) == terrain.Wall {
		t.Fatalf("exit cells must be open")
	}
}

func TestPlaceFeatures(t *testing.T) {
	g := terrain.NewGrid(50)
	f, ok := PlaceFeatures(g, 9, 2)
	if !ok {
		t.Fatalf("expected features on an open grid")
	}
	if len(f.Sources) != 2 {
		t.Fatalf("sources=%d want 2", len(f.Sources))
	}
	all := append([]struct{ x, y int }{}, struct{ x, y int }{f.Controller.X, f.Controller.Y})
	for _, s := range f.Sources {
		all = append(all, struct{ x, y int }{s.X, s.Y})
	}
	for _, p := range all {
		if p.x < 3 || p.y < 3 || p.x > 46 || p.y > 46 {
			t.Fatalf("feature %v too close to the border", p)
		}
	}
	if f.Controller.Chebyshev(f.Mineral) < 6 {
		t.Fatalf("features must be spread out")
	}
}

func TestPlaceFeaturesCramped(t *testing.T) {
	g := terrain.NewGrid(8)
	if _, ok := PlaceFeatures(g, 1, 2); ok {
		t.Fatalf("expected no room for features on a tiny grid")
	}
}
