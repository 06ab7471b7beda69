package world

import (
	"fmt"
	"sort"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/links"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/world/terrain"
	"baseplan.ai/internal/sim/world/terrain/gen"
)

// Allowance caps how many structures of a type a tier may hold.
type Allowance interface {
	Allowance(t structure.Type, tier int) int
}

type RoomConfig struct {
	ID string
	// Owner is the player the planner acts for.
	Owner string
	// ControllerOwner holds the room; the planner has authority only when it
	// matches Owner.
	ControllerOwner string
	Tier            int

	SiteLimit    int
	BuildPerTick int
	BuilderRole  string
}

type Structure struct {
	ID       string
	Type     structure.Type
	Pos      geom.Coord
	Owner    string
	Goods    map[string]int
	Cooldown int
}

type Site struct {
	ID   string
	Type structure.Type
	Pos  geom.Coord
}

// Room is a simulated room. It is not safe for concurrent use; the planner
// loop owns it.
type Room struct {
	cfg      RoomConfig
	grid     *terrain.Grid
	features gen.Features
	allow    Allowance

	structs []*Structure
	sites   []*Site
	nextID  uint64

	links     *links.Registry
	transfers map[string]int
}

func NewRoom(cfg RoomConfig, grid *terrain.Grid, f gen.Features, allow Allowance) *Room {
	if cfg.BuildPerTick <= 0 {
		cfg.BuildPerTick = 1
	}
	return &Room{
		cfg:       cfg,
		grid:      grid,
		features:  f,
		allow:     allow,
		links:     links.NewRegistry(),
		transfers: map[string]int{},
	}
}

// Generate builds a room from a seed. ok is false when the terrain is too
// cramped to hold the features.
func Generate(cfg RoomConfig, p gen.Params, allow Allowance) (*Room, bool) {
	g := gen.Generate(p)
	f, ok := gen.PlaceFeatures(g, p.Seed, 2)
	if !ok {
		return nil, false
	}
	return NewRoom(cfg, g, f, allow), true
}

func (r *Room) ID() string                   { return r.cfg.ID }
func (r *Room) Config() RoomConfig           { return r.cfg }
func (r *Room) Grid() *terrain.Grid          { return r.grid }
func (r *Room) Size() int                    { return r.grid.Size() }
func (r *Room) Class(x, y int) terrain.Class { return r.grid.Class(x, y) }

func (r *Room) Controller() geom.Coord { return r.features.Controller }
func (r *Room) Mineral() geom.Coord    { return r.features.Mineral }
func (r *Room) Sources() []geom.Coord {
	return append([]geom.Coord(nil), r.features.Sources...)
}

func (r *Room) Links() *links.Registry { return r.links }

func (r *Room) SetTier(t int)               { r.cfg.Tier = t }
func (r *Room) SetControllerOwner(o string) { r.cfg.ControllerOwner = o }

func (r *Room) Tier() int { return r.cfg.Tier }

func (r *Room) Controlled() bool {
	return r.cfg.Owner != "" && r.cfg.ControllerOwner == r.cfg.Owner
}

func (r *Room) newID(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s%d", prefix, r.nextID)
}

// Place adds a finished structure directly, bypassing construction. Used to
// seed scenarios and restore snapshots.
func (r *Room) Place(t structure.Type, pos geom.Coord, owner string, goods map[string]int) string {
	s := &Structure{ID: r.newID("s"), Type: t, Pos: pos, Owner: owner, Goods: copyGoods(goods)}
	r.structs = append(r.structs, s)
	return s.ID
}

func copyGoods(g map[string]int) map[string]int {
	if len(g) == 0 {
		return nil
	}
	out := make(map[string]int, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

func (r *Room) structure(id string) *Structure {
	for _, s := range r.structs {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (r *Room) Structures() []reconcile.Structure {
	out := make([]reconcile.Structure, 0, len(r.structs))
	for _, s := range r.structs {
		out = append(out, reconcile.Structure{ID: s.ID, Type: s.Type, Pos: s.Pos})
	}
	return out
}

func (r *Room) StructuresAt(pos geom.Coord) []reconcile.Structure {
	var out []reconcile.Structure
	for _, s := range r.structs {
		if s.Pos == pos {
			out = append(out, reconcile.Structure{ID: s.ID, Type: s.Type, Pos: s.Pos})
		}
	}
	return out
}

// Sites lists open construction sites, oldest first.
func (r *Room) Sites() []Site {
	out := make([]Site, 0, len(r.sites))
	for _, s := range r.sites {
		out = append(out, *s)
	}
	return out
}

func (r *Room) IsForeignOwned(id string) bool {
	s := r.structure(id)
	return s != nil && s.Owner != r.cfg.Owner
}

func (r *Room) StoredGoods(id, kind string) int {
	s := r.structure(id)
	if s == nil {
		return 0
	}
	if kind != reconcile.AllGoods {
		return s.Goods[kind]
	}
	total := 0
	for _, v := range s.Goods {
		total += v
	}
	return total
}

func (r *Room) Destroy(id string) error {
	for i, s := range r.structs {
		if s.ID == id {
			r.structs = append(r.structs[:i], r.structs[i+1:]...)
			r.links.Forget(id)
			delete(r.transfers, id)
			return nil
		}
	}
	return fmt.Errorf("structure %s not found", id)
}

// Blocked reports an impassable structure at pos.
func (r *Room) Blocked(pos geom.Coord) bool {
	for _, s := range r.structs {
		if s.Pos == pos && !structure.Walkable(s.Type) {
			return true
		}
	}
	return false
}

// Within lists the cells holding a t structure or site within Chebyshev
// radius of pos.
func (r *Room) Within(pos geom.Coord, radius int, t structure.Type) []geom.Coord {
	var out []geom.Coord
	for _, s := range r.structs {
		if s.Type == t && s.Pos.Chebyshev(pos) <= radius {
			out = append(out, s.Pos)
		}
	}
	for _, s := range r.sites {
		if s.Type == t && s.Pos.Chebyshev(pos) <= radius {
			out = append(out, s.Pos)
		}
	}
	return out
}

// Count is the number of t structures plus sites the owner has in the room.
func (r *Room) Count(t structure.Type) int {
	n := 0
	for _, s := range r.structs {
		if s.Type == t && s.Owner == r.cfg.Owner {
			n++
		}
	}
	for _, s := range r.sites {
		if s.Type == t {
			n++
		}
	}
	return n
}

// Census tallies owned structures by type name.
func (r *Room) Census() map[string]int {
	out := map[string]int{}
	for _, s := range r.structs {
		if s.Owner == r.cfg.Owner {
			out[s.Type.String()]++
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
