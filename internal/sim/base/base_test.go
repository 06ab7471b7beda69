package base

import (
	"encoding/json"
	"errors"
	"testing"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

func TestDelayEntry_String(t *testing.T) {
	e := DelayEntry{Pos: geom.C(12, 12), Type: structure.Road}
	if e.String() != "12 12 road" {
		t.Fatalf("got %q", e.String())
	}
	back, err := ParseDelayEntry(e.String())
	if err != nil || back != e {
		t.Fatalf("round trip: %+v %v", back, err)
	}
	w, err := ParseDelayEntry("  3 40 constructedWall ")
	if err != nil || w.Type != structure.Wall || w.Pos != geom.C(3, 40) {
		t.Fatalf("got %+v %v", w, err)
	}
}

func TestParseDelayEntry_Invalid(t *testing.T) {
	for _, s := range []string{"", "1 2", "a 2 road", "1 b road", "1 2 castle", "1 2 road extra"} {
		if _, err := ParseDelayEntry(s); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%q: got %v", s, err)
		}
	}
}

func TestState_JSONUsesFlatEntries(t *testing.T) {
	c := geom.C(25, 24)
	s := State{ID: "W1N1", Center: &c, DelayQueue: []DelayEntry{{Pos: geom.C(1, 2), Type: structure.Extension}}}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"id":"W1N1","center":{"x":25,"y":24},"no_layout":false,"delay_queue":["1 2 extension"]}`
	if string(raw) != want {
		t.Fatalf("got %s", raw)
	}
	var back State
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.DelayQueue[0] != s.DelayQueue[0] || *back.Center != c {
		t.Fatalf("got %+v", back)
	}
}

func TestState_EnqueueDedupes(t *testing.T) {
	var s State
	e := DelayEntry{Pos: geom.C(12, 12), Type: structure.Road}
	if !s.Enqueue(e) || s.Enqueue(e) {
		t.Fatalf("second enqueue should be a no-op")
	}
	if len(s.DelayQueue) != 1 {
		t.Fatalf("len=%d", len(s.DelayQueue))
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	if _, err := m.Load("x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
	c := geom.C(5, 5)
	if err := m.Save(State{ID: "b", Center: &c}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := m.Load("b")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got.Center.X = 99
	again, _ := m.Load("b")
	if again.Center.X != 5 {
		t.Fatalf("store aliased the center")
	}
	_ = m.Save(State{ID: "a"})
	ids, _ := m.List()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids=%v", ids)
	}
	if err := m.Save(State{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty id: %v", err)
	}
}
