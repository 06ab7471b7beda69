package links

import "testing"

type view struct {
	links   map[string]Link
	pending map[string]bool
}

func (v view) Link(id string) (Link, bool) {
	l, ok := v.links[id]
	return l, ok
}

func (v view) TransferPending(id string) bool { return v.pending[id] }

func TestRegistry_SingleCenterAndUpgrade(t *testing.T) {
	r := NewRegistry()
	r.Assign("a", Center)
	r.Assign("b", Center)
	if id, _ := r.Center(); id != "b" || r.Role("a") != Unassigned {
		t.Fatalf("center=%s role(a)=%s", id, r.Role("a"))
	}
	r.Assign("b", Source)
	if _, ok := r.Center(); ok {
		t.Fatalf("reassigning the center must clear it")
	}
	r.Assign("u", Upgrade)
	r.Forget("u")
	if _, ok := r.Upgrade(); ok {
		t.Fatalf("Forget must clear the upgrade link")
	}
}

func TestDecide(t *testing.T) {
	r := NewRegistry()
	r.Assign("src", Source)
	r.Assign("mid", Center)
	r.Assign("up", Upgrade)

	v := view{links: map[string]Link{
		"src": {ID: "src", Energy: 800},
		"mid": {ID: "mid", Energy: 0},
		"up":  {ID: "up", Energy: 0},
	}, pending: map[string]bool{}}

	cases := []struct {
		name string
		link Link
		want Action
	}{
		{"source feeds empty upgrade", Link{ID: "src", Energy: 800}, Action{Kind: SendTo, Target: "up", Amount: 800}},
		{"cooldown idles", Link{ID: "src", Energy: 800, Cooldown: 3}, Action{Kind: Idle}},
		{"empty idles", Link{ID: "src"}, Action{Kind: Idle}},
		{"center requests transfer", Link{ID: "mid", Energy: 400}, Action{Kind: RequestTransfer, Amount: 400}},
		{"upgrade idles", Link{ID: "up", Energy: 400}, Action{Kind: Idle}},
		{"unassigned idles", Link{ID: "x", Energy: 400}, Action{Kind: Idle}},
	}
	for _, tc := range cases {
		if got := Decide(tc.link, r, v); got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}

	v.links["up"] = Link{ID: "up", Energy: 50}
	if got := Decide(Link{ID: "src", Energy: 800}, r, v); got.Target != "mid" {
		t.Fatalf("busy upgrade link should fall back to center, got %+v", got)
	}
	v.pending["mid"] = true
	if got := Decide(Link{ID: "mid", Energy: 400}, r, v); got.Kind != Idle {
		t.Fatalf("center with pending transfer should idle, got %+v", got)
	}
}

func TestRegistry_Prune(t *testing.T) {
	r := NewRegistry()
	r.Assign("a", Source)
	r.Assign("b", Center)
	gone := r.Prune(view{links: map[string]Link{"a": {ID: "a"}}})
	if len(gone) != 1 || gone[0] != "b" {
		t.Fatalf("gone=%v", gone)
	}
	if _, ok := r.Center(); ok {
		t.Fatalf("center survived prune")
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{Source, Center, Upgrade} {
		got, err := ParseRole(r.String())
		if err != nil || got != r {
			t.Fatalf("%s: %v %v", r, got, err)
		}
	}
	if _, err := ParseRole("boss"); err == nil {
		t.Fatalf("expected error")
	}
}
