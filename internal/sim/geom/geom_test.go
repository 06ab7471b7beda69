package geom

import "testing"

func TestChebyshev(t *testing.T) {
	cases := []struct {
		a, b Coord
		want int
	}{
		{C(0, 0), C(0, 0), 0},
		{C(0, 0), C(3, 1), 3},
		{C(5, 5), C(2, 9), 4},
		{C(-1, 0), C(1, 0), 2},
	}
	for _, c := range cases {
		if got := c.a.Chebyshev(c.b); got != c.want {
			t.Fatalf("Chebyshev(%v,%v)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestPointIntegral(t *testing.T) {
	if c, ok := (Point{X: 4, Y: 7}).Integral(); !ok || c != C(4, 7) {
		t.Fatalf("expected integral 4,7 got %v ok=%v", c, ok)
	}
	if _, ok := (Point{X: 4.5, Y: 7}).Integral(); ok {
		t.Fatalf("expected half point to be non-integral")
	}
}

func TestLessIsRowMajor(t *testing.T) {
	if !C(9, 0).Less(C(0, 1)) {
		t.Fatalf("row 0 must sort before row 1")
	}
	if !C(1, 3).Less(C(2, 3)) {
		t.Fatalf("same row sorts by column")
	}
}
