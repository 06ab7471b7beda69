package mathx

import "testing"

func TestFloorDivAndMod(t *testing.T) {
	cases := []struct{ a, b, q, m int }{
		{7, 3, 2, 1},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{0, 5, 0, 0},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.q {
			t.Fatalf("FloorDiv(%d,%d)=%d want %d", c.a, c.b, got, c.q)
		}
		if got := Mod(c.a, c.b); got != c.m {
			t.Fatalf("Mod(%d,%d)=%d want %d", c.a, c.b, got, c.m)
		}
	}
}

func TestHash2Stable(t *testing.T) {
	if Hash2(42, 3, 9) != Hash2(42, 3, 9) {
		t.Fatalf("hash must be deterministic")
	}
	if Hash2(42, 3, 9) == Hash2(43, 3, 9) {
		t.Fatalf("seed must change the hash")
	}
}

func TestClampInt(t *testing.T) {
	if ClampInt(12, 1, 8) != 8 || ClampInt(-3, 1, 8) != 1 || ClampInt(4, 1, 8) != 4 {
		t.Fatalf("clamp broken")
	}
}
