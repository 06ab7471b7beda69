package world

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/links"
	"baseplan.ai/internal/sim/structure"
)

const (
	linkCapacity     = 800
	linkHarvestRate  = 20
	linkUpgradeDrain = 15
)

// AssignLinks gives unregistered owned links a role by location: next to a
// source, next to the base center, or near the controller.
func (r *Room) AssignLinks(center *geom.Coord) {
	for _, s := range r.structs {
		if s.Type != structure.Link || s.Owner != r.cfg.Owner {
			continue
		}
		if r.links.Role(s.ID) != links.Unassigned {
			continue
		}
		switch {
		case r.nearSource(s.Pos, 2):
			r.links.Assign(s.ID, links.Source)
		case center != nil && s.Pos.Chebyshev(*center) <= 2:
			if _, ok := r.links.Center(); !ok {
				r.links.Assign(s.ID, links.Center)
			}
		case s.Pos.Chebyshev(r.features.Controller) <= 3:
			if _, ok := r.links.Upgrade(); !ok {
				r.links.Assign(s.ID, links.Upgrade)
			}
		}
	}
}

func (r *Room) nearSource(p geom.Coord, radius int) bool {
	for _, src := range r.features.Sources {
		if p.Chebyshev(src) <= radius {
			return true
		}
	}
	return false
}

// Link implements links.View.
func (r *Room) Link(id string) (links.Link, bool) {
	s := r.structure(id)
	if s == nil || s.Type != structure.Link {
		return links.Link{}, false
	}
	return links.Link{ID: s.ID, Energy: s.Goods["energy"], Cooldown: s.Cooldown}, true
}

func (r *Room) TransferPending(id string) bool {
	_, ok := r.transfers[id]
	return ok
}

func (r *Room) storage() *Structure {
	for _, s := range r.structs {
		if s.Type == structure.Storage && s.Owner == r.cfg.Owner {
			return s
		}
	}
	return nil
}

func addGoods(s *Structure, kind string, n int) {
	if s.Goods == nil {
		s.Goods = map[string]int{}
	}
	s.Goods[kind] += n
	if s.Goods[kind] <= 0 {
		delete(s.Goods, kind)
	}
}

// flowLinks runs one tick of link traffic. Pending transfers from the
// previous tick land in storage first, then every link decides.
func (r *Room) flowLinks() {
	r.links.Prune(r)

	if st := r.storage(); st != nil {
		for _, id := range sortedKeys(r.transfers) {
			if l := r.structure(id); l != nil {
				amt := min(r.transfers[id], l.Goods["energy"])
				addGoods(l, "energy", -amt)
				addGoods(st, "energy", amt)
			}
			delete(r.transfers, id)
		}
	}

	for _, id := range r.links.IDs() {
		s := r.structure(id)
		if s == nil {
			continue
		}
		if s.Cooldown > 0 {
			s.Cooldown--
		}
		switch r.links.Role(id) {
		case links.Source:
			addGoods(s, "energy", min(linkHarvestRate, linkCapacity-s.Goods["energy"]))
		case links.Upgrade:
			addGoods(s, "energy", -min(linkUpgradeDrain, s.Goods["energy"]))
		}
	}

	for _, id := range r.links.IDs() {
		l, ok := r.Link(id)
		if !ok {
			continue
		}
		act := links.Decide(l, r.links, r)
		switch act.Kind {
		case links.SendTo:
			r.send(id, act.Target)
		case links.RequestTransfer:
			if r.storage() != nil {
				r.transfers[id] = act.Amount
			}
		}
	}
}

// send moves energy between links. 3% is lost in transit and the sender
// cools down for the distance travelled.
func (r *Room) send(from, to string) {
	src, dst := r.structure(from), r.structure(to)
	if src == nil || dst == nil {
		return
	}
	amt := min(src.Goods["energy"], linkCapacity-dst.Goods["energy"])
	if amt <= 0 {
		return
	}
	loss := (amt*3 + 99) / 100
	addGoods(src, "energy", -amt)
	addGoods(dst, "energy", amt-loss)
	src.Cooldown = src.Pos.Chebyshev(dst.Pos)
}
