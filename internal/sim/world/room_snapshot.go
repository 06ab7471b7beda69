package world

import (
	"fmt"
	"sort"

	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/encoding"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/links"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/world/terrain"
	"baseplan.ai/internal/sim/world/terrain/gen"
)

func pair(c geom.Coord) [2]int { return [2]int{c.X, c.Y} }

func coord(p [2]int) geom.Coord { return geom.Coord{X: p[0], Y: p[1]} }

// ExportSnapshot captures the room's full state.
func (r *Room) ExportSnapshot() snapshot.RoomV1 {
	cells := r.grid.Cells()
	raw := make([]uint8, len(cells))
	for i, c := range cells {
		raw[i] = uint8(c)
	}
	v := snapshot.RoomV1{
		ID:              r.cfg.ID,
		Owner:           r.cfg.Owner,
		ControllerOwner: r.cfg.ControllerOwner,
		Tier:            r.cfg.Tier,
		SiteLimit:       r.cfg.SiteLimit,
		BuildPerTick:    r.cfg.BuildPerTick,
		BuilderRole:     r.cfg.BuilderRole,
		Size:            r.grid.Size(),
		Terrain:         encoding.EncodeRLE(raw),
		Controller:      pair(r.features.Controller),
		Mineral:         pair(r.features.Mineral),
		NextID:          r.nextID,
	}
	for _, s := range r.features.Sources {
		v.Sources = append(v.Sources, pair(s))
	}
	for _, s := range r.structs {
		v.Structures = append(v.Structures, snapshot.StructureV1{
			ID:       s.ID,
			Type:     s.Type.String(),
			Pos:      pair(s.Pos),
			Owner:    s.Owner,
			Goods:    copyGoods(s.Goods),
			Cooldown: s.Cooldown,
		})
	}
	for _, s := range r.sites {
		v.Sites = append(v.Sites, snapshot.SiteV1{ID: s.ID, Type: s.Type.String(), Pos: pair(s.Pos)})
	}
	if ids := r.links.IDs(); len(ids) > 0 {
		v.LinkRoles = make(map[string]string, len(ids))
		for _, id := range ids {
			v.LinkRoles[id] = r.links.Role(id).String()
		}
	}
	if len(r.transfers) > 0 {
		v.Transfers = make(map[string]int, len(r.transfers))
		for k, n := range r.transfers {
			v.Transfers[k] = n
		}
	}
	return v
}

// RoomFromSnapshot rebuilds a room exported by ExportSnapshot.
func RoomFromSnapshot(v snapshot.RoomV1, allow Allowance) (*Room, error) {
	raw, err := encoding.DecodeRLE(v.Terrain, v.Size*v.Size)
	if err != nil {
		return nil, fmt.Errorf("room %s terrain: %w", v.ID, err)
	}
	cells := make([]terrain.Class, len(raw))
	for i, c := range raw {
		if c > uint8(terrain.Swamp) {
			return nil, fmt.Errorf("room %s terrain: bad class %d at %d", v.ID, c, i)
		}
		cells[i] = terrain.Class(c)
	}
	grid, err := terrain.FromCells(v.Size, cells)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", v.ID, err)
	}
	f := gen.Features{Controller: coord(v.Controller), Mineral: coord(v.Mineral)}
	for _, s := range v.Sources {
		f.Sources = append(f.Sources, coord(s))
	}
	r := NewRoom(RoomConfig{
		ID:              v.ID,
		Owner:           v.Owner,
		ControllerOwner: v.ControllerOwner,
		Tier:            v.Tier,
		SiteLimit:       v.SiteLimit,
		BuildPerTick:    v.BuildPerTick,
		BuilderRole:     v.BuilderRole,
	}, grid, f, allow)

	for _, s := range v.Structures {
		t, err := structure.Parse(s.Type)
		if err != nil {
			return nil, fmt.Errorf("room %s structure %s: %w", v.ID, s.ID, err)
		}
		r.structs = append(r.structs, &Structure{
			ID:       s.ID,
			Type:     t,
			Pos:      coord(s.Pos),
			Owner:    s.Owner,
			Goods:    copyGoods(s.Goods),
			Cooldown: s.Cooldown,
		})
	}
	for _, s := range v.Sites {
		t, err := structure.Parse(s.Type)
		if err != nil {
			return nil, fmt.Errorf("room %s site %s: %w", v.ID, s.ID, err)
		}
		r.sites = append(r.sites, &Site{ID: s.ID, Type: t, Pos: coord(s.Pos)})
	}
	r.nextID = v.NextID

	ids := make([]string, 0, len(v.LinkRoles))
	for id := range v.LinkRoles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		role, err := links.ParseRole(v.LinkRoles[id])
		if err != nil {
			return nil, fmt.Errorf("room %s link %s: %w", v.ID, id, err)
		}
		r.links.Assign(id, role)
	}
	for k, n := range v.Transfers {
		r.transfers[k] = n
	}
	return r, nil
}
