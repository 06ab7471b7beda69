package workforce

import "testing"

func TestBoard_Dedupes(t *testing.T) {
	b := NewBoard()
	b.RequestRole("W1N1", "builder")
	b.RequestRole("W1N1", "builder")
	b.RequestRole("W2N1", "builder")
	b.RequestRole("W1N1", "hauler")

	p := b.Pending()
	if len(p) != 3 {
		t.Fatalf("pending=%v", p)
	}
	if p[0].BaseID != "W1N1" || p[0].Role != "builder" || p[2].Role != "hauler" {
		t.Fatalf("order=%v", p)
	}
	if !b.Active("W1N1", "builder") || b.Active("W2N1", "hauler") {
		t.Fatalf("Active wrong")
	}
}

func TestBoard_Release(t *testing.T) {
	b := NewBoard()
	b.RequestRole("a", "builder")
	b.Release("a", "builder")
	if b.Active("a", "builder") {
		t.Fatalf("still active after Release")
	}
	b.RequestRole("a", "builder")
	if !b.Active("a", "builder") {
		t.Fatalf("request after release ignored")
	}
}
