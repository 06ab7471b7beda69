// Package layout compiles a tiered base template plus computed overlays into an
// absolute construction plan.
package layout

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"baseplan.ai/internal/sim/structure"
)

// Offset is a position relative to the base center. A Computed offset has no
// coordinates; its cell is chosen by the placement rule of its type.
type Offset struct {
	DX, DY   int
	Computed bool
}

func Fixed(dx, dy int) Offset { return Offset{DX: dx, DY: dy} }
func Computed() Offset        { return Offset{Computed: true} }

// Template maps tier -> structure type -> offsets.
type Template struct {
	BaseSize int
	tiers    map[int]map[structure.Type][]Offset
}

func NewTemplate(baseSize int) *Template {
	return &Template{BaseSize: baseSize, tiers: map[int]map[structure.Type][]Offset{}}
}

func (t *Template) Add(tier int, typ structure.Type, offs ...Offset) {
	m := t.tiers[tier]
	if m == nil {
		m = map[structure.Type][]Offset{}
		t.tiers[tier] = m
	}
	m[typ] = append(m[typ], offs...)
}

// Offsets returns the offsets declared for typ at exactly this tier.
func (t *Template) Offsets(tier int, typ structure.Type) []Offset {
	return append([]Offset(nil), t.tiers[tier][typ]...)
}

// MaxTier is the highest tier with any declaration.
func (t *Template) MaxTier() int {
	hi := 0
	for tier := range t.tiers {
		if tier > hi {
			hi = tier
		}
	}
	return hi
}

// hasRule reports whether typ has a placement rule for Computed offsets.
func hasRule(typ structure.Type) bool {
	switch typ {
	case structure.Link, structure.Extractor, structure.Container:
		return true
	default:
		return false
	}
}

// Validate checks tier numbering, footprint bounds, duplicate cells and
// Computed offsets on types without a placement rule.
func (t *Template) Validate() error {
	if t.BaseSize <= 0 {
		return fmt.Errorf("layout: base_size must be positive")
	}
	half := t.BaseSize / 2
	seen := map[Offset]string{}
	for _, tier := range t.sortedTiers() {
		if tier < 1 {
			return fmt.Errorf("layout: tier %d out of range", tier)
		}
		for _, typ := range structure.All() {
			for _, o := range t.tiers[tier][typ] {
				if o.Computed {
					if !hasRule(typ) {
						return fmt.Errorf("layout: tier %d: %s has no placement rule for null offsets", tier, typ)
					}
					continue
				}
				if o.DX < -half || o.DX > half || o.DY < -half || o.DY > half {
					return fmt.Errorf("layout: tier %d: %s offset [%d,%d] outside the %dx%d footprint", tier, typ, o.DX, o.DY, t.BaseSize, t.BaseSize)
				}
				key := fmt.Sprintf("%d:%s", tier, typ)
				if prev, ok := seen[o]; ok && typ != structure.Rampart {
					return fmt.Errorf("layout: offset [%d,%d] used by %s and %s", o.DX, o.DY, prev, key)
				}
				if typ != structure.Rampart {
					seen[o] = key
				}
			}
		}
	}
	return nil
}

func (t *Template) sortedTiers() []int {
	out := make([]int, 0, len(t.tiers))
	for tier := range t.tiers {
		out = append(out, tier)
	}
	sort.Ints(out)
	return out
}

type templateJSON struct {
	BaseSize int                                `json:"base_size"`
	Tiers    map[string]map[string][]*[2]int `json:"tiers"`
}

func (t *Template) MarshalJSON() ([]byte, error) {
	out := templateJSON{BaseSize: t.BaseSize, Tiers: map[string]map[string][]*[2]int{}}
	for tier, byType := range t.tiers {
		m := map[string][]*[2]int{}
		for typ, offs := range byType {
			list := make([]*[2]int, 0, len(offs))
			for _, o := range offs {
				if o.Computed {
					list = append(list, nil)
					continue
				}
				list = append(list, &[2]int{o.DX, o.DY})
			}
			m[typ.String()] = list
		}
		out.Tiers[strconv.Itoa(tier)] = m
	}
	return json.Marshal(out)
}

func (t *Template) UnmarshalJSON(b []byte) error {
	var in templateJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	nt := NewTemplate(in.BaseSize)
	for tierKey, byType := range in.Tiers {
		tier, err := strconv.Atoi(tierKey)
		if err != nil {
			return fmt.Errorf("layout: bad tier %q", tierKey)
		}
		for name := range byType {
			if _, err := structure.Parse(name); err != nil {
				return fmt.Errorf("layout: tier %d: %w", tier, err)
			}
		}
		// Canonical order keeps the result independent of map iteration.
		for _, typ := range structure.All() {
			list, ok := byType[typ.String()]
			if !ok {
				continue
			}
			for _, p := range list {
				if p == nil {
					nt.Add(tier, typ, Computed())
					continue
				}
				nt.Add(tier, typ, Fixed(p[0], p[1]))
			}
		}
		if _, ok := nt.tiers[tier]; !ok {
			nt.tiers[tier] = map[structure.Type][]Offset{}
		}
	}
	*t = *nt
	return nil
}
