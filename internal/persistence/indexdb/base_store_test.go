package indexdb

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"baseplan.ai/internal/sim/base"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

func TestBaseStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bases.sqlite")
	s, err := OpenBaseStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := s.Load("W1N1"); !errors.Is(err, base.ErrNotFound) {
		t.Fatalf("missing base err=%v", err)
	}
	if err := s.Save(base.State{}); !errors.Is(err, base.ErrInvalidArgument) {
		t.Fatalf("empty id err=%v", err)
	}

	c := geom.C(25, 24)
	want := base.State{
		ID:     "W1N1",
		Center: &c,
		DelayQueue: []base.DelayEntry{
			{Pos: geom.C(12, 12), Type: structure.Road},
			{Pos: geom.C(1, 2), Type: structure.Extension},
		},
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(base.State{ID: "E3S3", NoLayout: true}); err != nil {
		t.Fatalf("save second: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenBaseStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Load("W1N1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	other, err := s.Load("E3S3")
	if err != nil {
		t.Fatalf("load second: %v", err)
	}
	if other.Center != nil || !other.NoLayout || len(other.DelayQueue) != 0 {
		t.Fatalf("second base=%+v", other)
	}
	ids, err := s.List()
	if err != nil || !cmp.Equal(ids, []string{"E3S3", "W1N1"}) {
		t.Fatalf("ids=%v err=%v", ids, err)
	}
}

func TestBaseStore_SaveReplacesQueueAndClearsCenter(t *testing.T) {
	s, err := OpenBaseStore(filepath.Join(t.TempDir(), "bases.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	c := geom.C(10, 10)
	st := base.State{ID: "W1N1", Center: &c, DelayQueue: []base.DelayEntry{{Pos: geom.C(3, 3), Type: structure.Road}}}
	if err := s.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	st.Center = nil
	st.DelayQueue = nil
	if err := s.Save(st); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err := s.Load("W1N1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Center != nil || len(got.DelayQueue) != 0 {
		t.Fatalf("state not replaced: %+v", got)
	}
}
