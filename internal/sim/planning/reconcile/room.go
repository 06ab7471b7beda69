package reconcile

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

// Goods kinds understood by Room.StoredGoods.
const (
	AllGoods = ""
	Energy   = "energy"
)

// Structure is a built structure as the reconciler sees it.
type Structure struct {
	ID   string
	Type structure.Type
	Pos  geom.Coord
}

// Room is the live world a base is reconciled against.
type Room interface {
	Tier() int
	// Controlled reports whether the caller has authority over the room.
	Controlled() bool
	Structures() []Structure
	StructuresAt(pos geom.Coord) []Structure
	// IsForeignOwned is true for anything the caller does not own, including
	// unowned structures.
	IsForeignOwned(id string) bool
	StoredGoods(id string, kind string) int
	Destroy(id string) error
	CreateSite(pos geom.Coord, t structure.Type) structure.Outcome
}

// Policy classifies structure types. The structure catalog implements it.
type Policy interface {
	Critical(t structure.Type) bool
	DestroyWhenForeign(t structure.Type) bool
	Boundary(t structure.Type) bool
}

// Workforce receives fire-and-forget role requests.
type Workforce interface {
	RequestRole(baseID, role string)
}
