package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sample(tick uint64) SnapshotV1 {
	c := [2]int{25, 24}
	return SnapshotV1{
		Header:   Header{Version: Version, PlannerID: "planner-1", Tick: tick},
		GridSize: 50,
		Seed:     7,
		Rooms: []RoomV1{{
			ID:         "W1N1",
			Owner:      "me",
			Tier:       3,
			Size:       2,
			Terrain:    "AQQ=",
			Controller: [2]int{1, 1},
			Sources:    [][2]int{{0, 1}},
			Structures: []StructureV1{{ID: "s1", Type: "storage", Pos: [2]int{1, 0}, Owner: "me", Goods: map[string]int{"energy": 500}}},
			Sites:      []SiteV1{{ID: "c2", Type: "road", Pos: [2]int{0, 0}}},
			NextID:     3,
			LinkRoles:  map[string]string{"s9": "source"},
		}},
		Bases:     []BaseV1{{ID: "W1N1", Center: &c, DelayQueue: []string{"1 2 extension"}}},
		Workforce: []RequestV1{{BaseID: "W1N1", Role: "builder"}},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Name(600))
	want := sample(600)
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestReadSnapshotRejectsVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Name(1))
	snap := sample(1)
	snap.Header.Version = 99
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Latest(dir); ok {
		t.Fatalf("empty dir should have no latest")
	}
	for _, tick := range []uint64{600, 1200, 90} {
		if err := WriteSnapshot(filepath.Join(dir, Name(tick)), sample(tick)); err != nil {
			t.Fatalf("write %d: %v", tick, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.snap.zst"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, ok := Latest(dir)
	if !ok || filepath.Base(path) != "1200.snap.zst" {
		t.Fatalf("latest=%q ok=%v", path, ok)
	}
}
