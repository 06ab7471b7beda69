package layout

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

// Slot is one planned structure.
type Slot struct {
	Tier int            `json:"tier"`
	Type structure.Type `json:"type"`
	Pos  geom.Coord     `json:"pos"`
}

// Plan is an immutable tier -> type -> ordered positions map anchored at a
// center. Tier 0 is unused.
type Plan struct {
	center geom.Coord
	tiers  [][][]geom.Coord
}

func newPlan(center geom.Coord, maxTier int) *Plan {
	p := &Plan{center: center, tiers: make([][][]geom.Coord, maxTier+1)}
	for i := range p.tiers {
		p.tiers[i] = make([][]geom.Coord, len(structure.All())+1)
	}
	return p
}

func (p *Plan) add(tier int, typ structure.Type, pos geom.Coord) {
	p.tiers[tier][typ] = append(p.tiers[tier][typ], pos)
}

func (p *Plan) Center() geom.Coord { return p.center }
func (p *Plan) MaxTier() int       { return len(p.tiers) - 1 }

// Positions returns a copy of the positions of typ declared at tier.
func (p *Plan) Positions(tier int, typ structure.Type) []geom.Coord {
	if tier < 1 || tier >= len(p.tiers) || !typ.Valid() {
		return nil
	}
	return append([]geom.Coord(nil), p.tiers[tier][typ]...)
}

// Slots flattens the plan in reconcile order: tier ascending, then canonical
// type order, then placement order (fixed offsets, rule-placed, overlays).
func (p *Plan) Slots() []Slot {
	var out []Slot
	for tier := 1; tier < len(p.tiers); tier++ {
		for _, typ := range structure.All() {
			for _, pos := range p.tiers[tier][typ] {
				out = append(out, Slot{Tier: tier, Type: typ, Pos: pos})
			}
		}
	}
	return out
}

func (p *Plan) Len() int {
	n := 0
	for tier := 1; tier < len(p.tiers); tier++ {
		for _, list := range p.tiers[tier] {
			n += len(list)
		}
	}
	return n
}

// UpTo returns a view holding only tiers <= tier. The receiver is not copied;
// both share backing storage, which is never mutated after compile.
func (p *Plan) UpTo(tier int) *Plan {
	if tier >= p.MaxTier() {
		return p
	}
	if tier < 0 {
		tier = 0
	}
	return &Plan{center: p.center, tiers: p.tiers[:tier+1]}
}

// At lists the planned types at pos across all tiers, in slot order.
func (p *Plan) At(pos geom.Coord) []structure.Type {
	var out []structure.Type
	for _, s := range p.Slots() {
		if s.Pos == pos {
			out = append(out, s.Type)
		}
	}
	return out
}
