package reconcile

import (
	"fmt"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

type site struct {
	pos geom.Coord
	typ structure.Type
}

// fakeRoom is a minimal world: built structures, construction sites with a
// global limit, and per-cell outcome overrides.
type fakeRoom struct {
	tier       int
	controlled bool
	siteLimit  int

	structs  []Structure
	foreign  map[string]bool
	goods    map[string]map[string]int
	sites    []site
	override map[geom.Coord]structure.Outcome

	attempts map[geom.Coord]int
	nextID   int

	// haltAfter > 0 panics on the CreateSite call after that many sites
	// were opened, like a process dying mid-run.
	haltAfter int
	opened    int
}

type halted struct{}

func newFakeRoom(tier int) *fakeRoom {
	return &fakeRoom{
		tier:       tier,
		controlled: true,
		siteLimit:  100,
		foreign:    map[string]bool{},
		goods:      map[string]map[string]int{},
		override:   map[geom.Coord]structure.Outcome{},
		attempts:   map[geom.Coord]int{},
	}
}

func (f *fakeRoom) build(t structure.Type, pos geom.Coord, foreign bool, goods map[string]int) string {
	f.nextID++
	id := fmt.Sprintf("s%d", f.nextID)
	f.structs = append(f.structs, Structure{ID: id, Type: t, Pos: pos})
	f.foreign[id] = foreign
	f.goods[id] = goods
	return id
}

// finishSites turns every site into an owned structure.
func (f *fakeRoom) finishSites() {
	for _, s := range f.sites {
		f.build(s.typ, s.pos, false, nil)
	}
	f.sites = nil
}

func (f *fakeRoom) Tier() int        { return f.tier }
func (f *fakeRoom) Controlled() bool { return f.controlled }

func (f *fakeRoom) Structures() []Structure {
	return append([]Structure(nil), f.structs...)
}

func (f *fakeRoom) StructuresAt(pos geom.Coord) []Structure {
	var out []Structure
	for _, s := range f.structs {
		if s.Pos == pos {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeRoom) IsForeignOwned(id string) bool { return f.foreign[id] }

func (f *fakeRoom) StoredGoods(id, kind string) int {
	g := f.goods[id]
	if kind != AllGoods {
		return g[kind]
	}
	total := 0
	for _, v := range g {
		total += v
	}
	return total
}

func (f *fakeRoom) Destroy(id string) error {
	for i, s := range f.structs {
		if s.ID == id {
			f.structs = append(f.structs[:i], f.structs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no structure %s", id)
}

func (f *fakeRoom) CreateSite(pos geom.Coord, t structure.Type) structure.Outcome {
	f.attempts[pos]++
	if f.haltAfter > 0 && f.opened >= f.haltAfter {
		panic(halted{})
	}
	if o, ok := f.override[pos]; ok {
		return o
	}
	for _, s := range f.sites {
		if s.pos == pos && s.typ == t {
			return structure.AlreadySatisfied
		}
	}
	for _, s := range f.structs {
		if s.Pos != pos {
			continue
		}
		if s.Type == t && !f.foreign[s.ID] {
			return structure.AlreadySatisfied
		}
		if !structure.CanShare(s.Type, t) {
			return structure.InvalidTarget
		}
	}
	if len(f.sites) >= f.siteLimit {
		return structure.CapacityExceeded
	}
	f.sites = append(f.sites, site{pos: pos, typ: t})
	f.opened++
	return structure.OK
}

type fakeWorkforce struct {
	requests []string
}

func (w *fakeWorkforce) RequestRole(baseID, role string) {
	w.requests = append(w.requests, baseID+"/"+role)
}
