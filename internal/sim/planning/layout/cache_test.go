package layout

import (
	"errors"
	"testing"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

func TestCache_RebuildsOnlyOnCenterChange(t *testing.T) {
	c := NewCache()
	builds := 0
	build := func(center geom.Coord) func() (*Plan, error) {
		return func() (*Plan, error) {
			builds++
			return newPlan(center, 8), nil
		}
	}

	a, _ := c.Get("W1N1", geom.C(10, 10), build(geom.C(10, 10)))
	b, _ := c.Get("W1N1", geom.C(10, 10), build(geom.C(10, 10)))
	if a != b || builds != 1 {
		t.Fatalf("builds=%d same=%v", builds, a == b)
	}
	d, _ := c.Get("W1N1", geom.C(12, 10), build(geom.C(12, 10)))
	if builds != 2 || d.Center() != geom.C(12, 10) {
		t.Fatalf("builds=%d center=%v", builds, d.Center())
	}
	c.Invalidate("W1N1")
	if _, ok := c.Peek("W1N1"); ok {
		t.Fatalf("entry survived Invalidate")
	}
}

func TestCache_ErrorNotStored(t *testing.T) {
	c := NewCache()
	boom := errors.New("boom")
	if _, err := c.Get("b", geom.C(1, 1), func() (*Plan, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed build cached")
	}
}

func TestCapture(t *testing.T) {
	center := geom.C(20, 20)
	structs := []Placed{
		{Type: structure.Spawn, Pos: geom.C(20, 19)},
		{Type: structure.Extension, Pos: geom.C(22, 22)},
		{Type: structure.Extension, Pos: geom.C(21, 21)},
		{Type: structure.Extension, Pos: geom.C(19, 21)},
		{Type: structure.Tower, Pos: geom.C(30, 30)},
	}
	allow := func(typ structure.Type, tier int) int {
		switch typ {
		case structure.Spawn:
			return 1
		case structure.Extension:
			if tier >= 3 {
				return 10
			}
			if tier == 2 {
				return 2
			}
		}
		return 0
	}
	tpl := Capture(structs, center, 5, 8, allow)
	if got := tpl.Offsets(1, structure.Spawn); len(got) != 1 || got[0] != Fixed(0, -1) {
		t.Fatalf("spawn=%v", got)
	}
	// Nearest two extensions unlock at tier 2, the third waits for tier 3.
	if got := tpl.Offsets(2, structure.Extension); len(got) != 2 || got[0] != Fixed(-1, 1) || got[1] != Fixed(1, 1) {
		t.Fatalf("tier 2 extensions=%v", got)
	}
	if got := tpl.Offsets(3, structure.Extension); len(got) != 1 || got[0] != Fixed(2, 2) {
		t.Fatalf("tier 3 extensions=%v", got)
	}
	for tier := 1; tier <= 8; tier++ {
		if len(tpl.Offsets(tier, structure.Tower)) != 0 {
			t.Fatalf("tower outside the base was captured")
		}
	}
	if err := tpl.Validate(); err != nil {
		t.Fatalf("captured template invalid: %v", err)
	}
}
