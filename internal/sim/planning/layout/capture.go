package layout

import (
	"sort"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

// Placed is an existing structure seen in the world.
type Placed struct {
	Type structure.Type
	Pos  geom.Coord
}

// AllowanceFunc is how many structures of a type a tier permits in total.
type AllowanceFunc func(typ structure.Type, tier int) int

// Capture turns a hand-built base into a template. Structures outside the
// base square are ignored. Each structure lands on the lowest tier whose
// allowance still has room, nearest to the center first; ones that never fit
// are dropped.
func Capture(structs []Placed, center geom.Coord, baseSize, maxTier int, allowance AllowanceFunc) *Template {
	t := NewTemplate(baseSize)
	half := baseSize / 2

	in := make([]Placed, 0, len(structs))
	for _, s := range structs {
		if s.Type.Valid() && s.Pos.Chebyshev(center) <= half {
			in = append(in, s)
		}
	}
	sort.SliceStable(in, func(i, j int) bool {
		di, dj := in[i].Pos.Chebyshev(center), in[j].Pos.Chebyshev(center)
		if di != dj {
			return di < dj
		}
		return in[i].Pos.Less(in[j].Pos)
	})

	count := map[structure.Type]int{}
	for _, s := range in {
		for tier := 1; tier <= maxTier; tier++ {
			if allowance(s.Type, tier) > count[s.Type] {
				count[s.Type]++
				d := s.Pos.Sub(center)
				t.Add(tier, s.Type, Fixed(d.X, d.Y))
				break
			}
		}
	}
	return t
}
