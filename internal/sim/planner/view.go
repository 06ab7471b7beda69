package planner

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/planning/site"
)

// BaseView is a read-only summary of one base for transports.
type BaseView struct {
	ID         string         `json:"id"`
	Center     *geom.Coord    `json:"center"`
	AutoLayout bool           `json:"auto_layout"`
	DelayQueue []string       `json:"delay_queue"`
	Tier       int            `json:"tier"`
	Controlled bool           `json:"controlled"`
	Sites      int            `json:"sites"`
	Structures map[string]int `json:"structures"`
	PlanCached bool           `json:"plan_cached"`
}

type PlanView struct {
	BaseID string        `json:"base_id"`
	Center geom.Coord    `json:"center"`
	Tier   int           `json:"tier"`
	Slots  []layout.Slot `json:"slots"`
}

type SiteView struct {
	BaseID     string         `json:"base_id"`
	Size       int            `json:"size"`
	Candidates int            `json:"candidates"`
	Chosen     site.Candidate `json:"chosen"`
	Center     geom.Point     `json:"center"`
	Anchor     geom.Coord     `json:"anchor"`
}

func (p *Planner) Base(id string) (BaseView, error) {
	r, err := p.Room(id)
	if err != nil {
		return BaseView{}, err
	}
	st, err := p.loadState(id)
	if err != nil {
		return BaseView{}, err
	}
	v := BaseView{
		ID:         id,
		Center:     st.Center,
		AutoLayout: !st.NoLayout,
		DelayQueue: make([]string, 0, len(st.DelayQueue)),
		Tier:       r.Tier(),
		Controlled: r.Controlled(),
		Sites:      len(r.Sites()),
		Structures: r.Census(),
	}
	for _, e := range st.DelayQueue {
		v.DelayQueue = append(v.DelayQueue, e.String())
	}
	_, v.PlanCached = p.cache.Peek(id)
	return v, nil
}

func (p *Planner) Bases() ([]BaseView, error) {
	out := make([]BaseView, 0, len(p.order))
	for _, id := range p.order {
		v, err := p.Base(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *Planner) PlanView(id string, tier int) (PlanView, error) {
	plan, err := p.CompilePlan(id, tier)
	if err != nil {
		return PlanView{}, err
	}
	slots := plan.Slots()
	if slots == nil {
		slots = []layout.Slot{}
	}
	return PlanView{BaseID: id, Center: plan.Center(), Tier: tier, Slots: slots}, nil
}

func (p *Planner) SiteView(id string, size int) (SiteView, error) {
	if size <= 0 {
		size = p.tune.BaseSize
	}
	r, err := p.Room(id)
	if err != nil {
		return SiteView{}, err
	}
	n := len(p.SelectSite(r.Grid(), size))
	c, err := p.PlaceBase(id, size)
	if err != nil {
		return SiteView{}, err
	}
	return SiteView{BaseID: id, Size: size, Candidates: n, Chosen: c, Center: c.Center(), Anchor: c.AnchorCell()}, nil
}
