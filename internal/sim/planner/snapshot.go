package planner

import (
	"fmt"

	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/base"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/world"
)

// ExportSnapshot captures rooms, base state and outstanding workforce
// requests as of tick.
func (p *Planner) ExportSnapshot(tick uint64) (snapshot.SnapshotV1, error) {
	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: snapshot.Version, PlannerID: p.id, Tick: tick},
		GridSize: p.tune.GridSize,
		Seed:     p.seed,
	}
	for _, id := range p.order {
		snap.Rooms = append(snap.Rooms, p.rooms[id].ExportSnapshot())
	}

	ids, err := p.store.List()
	if err != nil {
		return snap, fmt.Errorf("list bases: %w", err)
	}
	for _, id := range ids {
		st, err := p.store.Load(id)
		if err != nil {
			return snap, fmt.Errorf("load base %s: %w", id, err)
		}
		b := snapshot.BaseV1{ID: st.ID, NoLayout: st.NoLayout}
		if st.Center != nil {
			b.Center = &[2]int{st.Center.X, st.Center.Y}
		}
		for _, e := range st.DelayQueue {
			b.DelayQueue = append(b.DelayQueue, e.String())
		}
		snap.Bases = append(snap.Bases, b)
	}

	for _, r := range p.board.Pending() {
		snap.Workforce = append(snap.Workforce, snapshot.RequestV1{BaseID: r.BaseID, Role: r.Role})
	}
	return snap, nil
}

// ImportSnapshot replaces the planner's rooms with the snapshot's and writes
// its base state to the store. It must run before Run.
func (p *Planner) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("snapshot version %d: %w", snap.Header.Version, base.ErrInvalidArgument)
	}
	rooms := make([]*world.Room, 0, len(snap.Rooms))
	for _, v := range snap.Rooms {
		r, err := world.RoomFromSnapshot(v, p.cats.Structures)
		if err != nil {
			return err
		}
		rooms = append(rooms, r)
	}
	states := make([]base.State, 0, len(snap.Bases))
	for _, b := range snap.Bases {
		st := base.State{ID: b.ID, NoLayout: b.NoLayout}
		if b.Center != nil {
			c := geom.Coord{X: b.Center[0], Y: b.Center[1]}
			st.Center = &c
		}
		for _, s := range b.DelayQueue {
			e, err := base.ParseDelayEntry(s)
			if err != nil {
				return fmt.Errorf("base %s delay queue: %w", b.ID, err)
			}
			st.DelayQueue = append(st.DelayQueue, e)
		}
		states = append(states, st)
	}

	p.rooms = map[string]*world.Room{}
	p.order = nil
	for _, r := range rooms {
		if err := p.AddRoom(r); err != nil {
			return err
		}
	}
	for _, st := range states {
		p.cache.Invalidate(st.ID)
		if err := p.store.Save(st); err != nil {
			return fmt.Errorf("restore base %s: %w", st.ID, err)
		}
	}
	for _, r := range snap.Workforce {
		p.board.RequestRole(r.BaseID, r.Role)
	}
	p.seed = snap.Seed
	p.tick.Store(snap.Header.Tick + 1)
	return nil
}
