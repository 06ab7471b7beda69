package world

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/links"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/workforce"
	"baseplan.ai/internal/sim/world/terrain"
	"baseplan.ai/internal/sim/world/terrain/gen"
)

const testMap = `
##########
#........#
#..#.....#
#........#
#....~...#
#........#
#........#
#........#
#........#
##########
`

type staticAllow map[structure.Type]int

func (a staticAllow) Allowance(t structure.Type, tier int) int { return a[t] }

func newTestRoom(t *testing.T, allow Allowance, siteLimit int) *Room {
	t.Helper()
	g, err := terrain.Parse(testMap)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := gen.Features{
		Controller: geom.C(7, 2),
		Sources:    []geom.Coord{geom.C(2, 7)},
		Mineral:    geom.C(7, 7),
	}
	return NewRoom(RoomConfig{
		ID:              "W1N1",
		Owner:           "me",
		ControllerOwner: "me",
		Tier:            3,
		SiteLimit:       siteLimit,
		BuildPerTick:    1,
		BuilderRole:     "builder",
	}, g, f, allow)
}

func TestCreateSiteInvalidTargets(t *testing.T) {
	r := newTestRoom(t, nil, 10)
	cases := []struct {
		name string
		pos  geom.Coord
		typ  structure.Type
	}{
		{"wall", geom.C(3, 2), structure.Road},
		{"border", geom.C(0, 5), structure.Road},
		{"outside", geom.C(-1, 3), structure.Road},
		{"invalid type", geom.C(4, 4), structure.Invalid},
		{"extractor off mineral", geom.C(4, 4), structure.Extractor},
	}
	for _, tc := range cases {
		if got := r.CreateSite(tc.pos, tc.typ); got != structure.InvalidTarget {
			t.Fatalf("%s: got %v want InvalidTarget", tc.name, got)
		}
	}
	if got := r.CreateSite(geom.C(7, 7), structure.Extractor); got != structure.OK {
		t.Fatalf("extractor on mineral: %v", got)
	}
	if len(r.Sites()) != 1 {
		t.Fatalf("sites=%d", len(r.Sites()))
	}
}

func TestCreateSiteOrdering(t *testing.T) {
	allow := staticAllow{structure.Road: 10, structure.Rampart: 10, structure.Extension: 1}
	r := newTestRoom(t, allow, 3)

	if got := r.CreateSite(geom.C(2, 2), structure.Road); got != structure.OK {
		t.Fatalf("road: %v", got)
	}
	if got := r.CreateSite(geom.C(2, 2), structure.Road); got != structure.AlreadySatisfied {
		t.Fatalf("duplicate road: %v", got)
	}
	if got := r.CreateSite(geom.C(2, 2), structure.Extension); got != structure.InvalidTarget {
		t.Fatalf("extension on road site: %v", got)
	}
	if got := r.CreateSite(geom.C(2, 2), structure.Rampart); got != structure.OK {
		t.Fatalf("rampart over road: %v", got)
	}
	if got := r.CreateSite(geom.C(5, 5), structure.Extension); got != structure.OK {
		t.Fatalf("extension: %v", got)
	}
	// Allowance is checked before the site cap.
	if got := r.CreateSite(geom.C(6, 6), structure.Extension); got != structure.TierInsufficient {
		t.Fatalf("second extension: %v", got)
	}
	if got := r.CreateSite(geom.C(6, 6), structure.Road); got != structure.CapacityExceeded {
		t.Fatalf("road over cap: %v", got)
	}
	if got := r.CreateSite(geom.C(6, 6), structure.Tower); got != structure.TierInsufficient {
		t.Fatalf("tower with no allowance: %v", got)
	}
}

func TestCreateSiteOwnedStructureSatisfies(t *testing.T) {
	r := newTestRoom(t, nil, 10)
	r.Place(structure.Spawn, geom.C(4, 4), "me", nil)
	r.Place(structure.Spawn, geom.C(6, 6), "them", nil)
	if got := r.CreateSite(geom.C(4, 4), structure.Spawn); got != structure.AlreadySatisfied {
		t.Fatalf("owned spawn: %v", got)
	}
	if got := r.CreateSite(geom.C(6, 6), structure.Spawn); got != structure.InvalidTarget {
		t.Fatalf("foreign spawn: %v", got)
	}
}

func TestBuildCompletesSitesAndReleases(t *testing.T) {
	r := newTestRoom(t, nil, 10)
	board := workforce.NewBoard()
	r.CreateSite(geom.C(2, 2), structure.Road)
	r.CreateSite(geom.C(2, 3), structure.Road)

	if done := r.Advance(board); done != 0 {
		t.Fatalf("built %d without a builder", done)
	}
	board.RequestRole("W1N1", "builder")
	if done := r.Advance(board); done != 1 {
		t.Fatalf("first tick built %d", done)
	}
	if !board.Active("W1N1", "builder") {
		t.Fatalf("builder released with a site left")
	}
	if done := r.Advance(board); done != 1 {
		t.Fatalf("second tick built %d", done)
	}
	if board.Active("W1N1", "builder") {
		t.Fatalf("builder still active with no sites")
	}
	if len(r.Sites()) != 0 {
		t.Fatalf("sites left: %v", r.Sites())
	}
	if got := r.Census()["road"]; got != 2 {
		t.Fatalf("roads=%d", got)
	}
	if r.Blocked(geom.C(2, 2)) {
		t.Fatalf("road should not block")
	}
}

func TestBlockedAndWithin(t *testing.T) {
	r := newTestRoom(t, nil, 10)
	r.Place(structure.Extension, geom.C(4, 4), "me", nil)
	r.Place(structure.Container, geom.C(5, 5), "me", nil)
	r.CreateSite(geom.C(6, 6), structure.Link)
	if !r.Blocked(geom.C(4, 4)) {
		t.Fatalf("extension should block")
	}
	if r.Blocked(geom.C(5, 5)) {
		t.Fatalf("container should not block")
	}
	if got := r.Within(geom.C(7, 7), 1, structure.Link); len(got) != 1 || got[0] != geom.C(6, 6) {
		t.Fatalf("link site within 1: %v", got)
	}
	if got := r.Within(geom.C(2, 2), 1, structure.Container); len(got) != 0 {
		t.Fatalf("no container near 2,2: %v", got)
	}
}

func TestLinkFlow(t *testing.T) {
	r := newTestRoom(t, nil, 10)
	st := r.Place(structure.Storage, geom.C(5, 5), "me", map[string]int{"energy": 1000})
	src := r.Place(structure.Link, geom.C(3, 6), "me", nil)
	ctr := r.Place(structure.Link, geom.C(4, 4), "me", map[string]int{"energy": 100})
	up := r.Place(structure.Link, geom.C(7, 1), "me", nil)

	center := geom.C(5, 5)
	r.AssignLinks(&center)
	if r.Links().Role(src) != links.Source || r.Links().Role(ctr) != links.Center || r.Links().Role(up) != links.Upgrade {
		t.Fatalf("roles: %v %v %v", r.Links().Role(src), r.Links().Role(ctr), r.Links().Role(up))
	}

	r.Advance(nil)
	if got := r.StoredGoods(up, "energy"); got != 19 {
		t.Fatalf("upgrade energy=%d want 19", got)
	}
	if got := r.StoredGoods(src, "energy"); got != 0 {
		t.Fatalf("source energy=%d want 0", got)
	}
	if l, _ := r.Link(src); l.Cooldown != 5 {
		t.Fatalf("source cooldown=%d want 5", l.Cooldown)
	}
	if !r.TransferPending(ctr) {
		t.Fatalf("center link should have requested a transfer")
	}

	r.Advance(nil)
	if got := r.StoredGoods(st, "energy"); got != 1100 {
		t.Fatalf("storage energy=%d want 1100", got)
	}
	if got := r.StoredGoods(ctr, "energy"); got != 0 {
		t.Fatalf("center energy=%d want 0", got)
	}
	if got := r.StoredGoods(up, "energy"); got != 4 {
		t.Fatalf("upgrade energy=%d want 4", got)
	}

	if err := r.Destroy(ctr); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, ok := r.Links().Center(); ok {
		t.Fatalf("destroyed center link still registered")
	}
}

func TestControlled(t *testing.T) {
	r := newTestRoom(t, nil, 10)
	if !r.Controlled() {
		t.Fatalf("room should be controlled")
	}
	r.SetControllerOwner("them")
	if r.Controlled() {
		t.Fatalf("room controlled by another owner")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := newTestRoom(t, staticAllow{structure.Road: 5}, 10)
	r.Place(structure.Storage, geom.C(5, 5), "me", map[string]int{"energy": 42})
	r.Place(structure.Link, geom.C(3, 6), "me", map[string]int{"energy": 10})
	r.Place(structure.Road, geom.C(1, 1), "them", nil)
	r.CreateSite(geom.C(2, 2), structure.Road)
	r.AssignLinks(nil)

	want := r.ExportSnapshot()
	back, err := RoomFromSnapshot(want, r.allow)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if diff := cmp.Diff(want, back.ExportSnapshot()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if back.Grid().String() != r.Grid().String() {
		t.Fatalf("terrain changed")
	}
	// IDs keep counting from where the source room left off.
	if got := back.CreateSite(geom.C(2, 3), structure.Road); got != structure.OK {
		t.Fatalf("site after restore: %v", got)
	}
	sites := back.Sites()
	if sites[len(sites)-1].ID != "c5" {
		t.Fatalf("next id=%s want c5", sites[len(sites)-1].ID)
	}
}

func TestGenerateRoom(t *testing.T) {
	cfg := RoomConfig{ID: "W2N2", Owner: "me", ControllerOwner: "me", Tier: 1, SiteLimit: 100}
	r, ok := Generate(cfg, gen.DefaultParams(11, 50), nil)
	if !ok {
		t.Fatalf("default params should place features")
	}
	if r.Size() != 50 || len(r.Sources()) != 2 {
		t.Fatalf("size=%d sources=%d", r.Size(), len(r.Sources()))
	}
	for _, c := range append(r.Sources(), r.Controller(), r.Mineral()) {
		if r.Grid().At(c) == terrain.Wall {
			t.Fatalf("feature on wall at %v", c)
		}
	}
}
