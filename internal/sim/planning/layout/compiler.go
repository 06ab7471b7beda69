package layout

import (
	"fmt"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/world/terrain"
)

// Spatial answers questions about structures that already exist. It only
// decides whether a resource node is already served; every position in a
// plan comes from the center, the terrain and the template, so a plan can be
// rebuilt from the persisted center alone.
type Spatial interface {
	// Within lists cells holding a typ structure or site within Chebyshev
	// radius of pos.
	Within(pos geom.Coord, radius int, typ structure.Type) []geom.Coord
}

// Env is the world a plan is compiled against.
type Env struct {
	Terrain    terrain.Query
	Spatial    Spatial
	Paths      Router
	Sources    []geom.Coord
	Mineral    *geom.Coord
	Governance *geom.Coord
}

type Compiler struct {
	Template         *Template
	MaxTier          int
	LinkSourceRadius int
	Overlays         []Overlay
}

// Compile resolves the template around center. The result depends only on the
// arguments, so identical inputs give identical plans.
func (c *Compiler) Compile(center geom.Coord, env Env) (*Plan, error) {
	if c.Template == nil {
		return nil, fmt.Errorf("layout: no template")
	}
	if env.Terrain == nil {
		return nil, fmt.Errorf("layout: no terrain")
	}
	maxTier := c.MaxTier
	if maxTier <= 0 {
		maxTier = c.Template.MaxTier()
	}

	plan := newPlan(center, maxTier)
	ctx := &Context{
		Center:   center,
		BaseSize: c.Template.BaseSize,
		Env:      env,
		planned:  map[geom.Coord][]structure.Type{},
	}
	mark := func(tier int, typ structure.Type, pos geom.Coord) {
		plan.add(tier, typ, pos)
		ctx.planned[pos] = append(ctx.planned[pos], typ)
	}

	// Fixed offsets first so rule placement can steer around every tier.
	for tier := 1; tier <= maxTier; tier++ {
		for _, typ := range structure.All() {
			for _, o := range c.Template.tiers[tier][typ] {
				if !o.Computed {
					mark(tier, typ, center.Add(geom.C(o.DX, o.DY)))
				}
			}
		}
	}

	rp := &rulePlacer{ctx: ctx, radius: c.LinkSourceRadius, harvest: map[int]geom.Coord{}}
	for tier := 1; tier <= maxTier; tier++ {
		for _, typ := range structure.All() {
			for _, o := range c.Template.tiers[tier][typ] {
				if !o.Computed {
					continue
				}
				if pos, ok := rp.place(typ); ok {
					mark(tier, typ, pos)
				}
			}
		}
	}

	for _, ov := range c.Overlays {
		if ov.Layers == nil || ov.Rule == nil {
			continue
		}
		for i, layer := range ov.Layers(ctx) {
			tier, err := assignTier(ov.Rule, i, maxTier)
			if err != nil {
				return nil, fmt.Errorf("layout: overlay %s: %w", ov.Name, err)
			}
			for _, pos := range layer {
				mark(tier, ov.Type, pos)
			}
		}
	}
	return plan, nil
}
