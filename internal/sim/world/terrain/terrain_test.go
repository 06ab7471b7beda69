package terrain

import "testing"

func TestParseAndString(t *testing.T) {
	src := `
		#..
		.~.
		..#
	`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Size() != 3 {
		t.Fatalf("size=%d want 3", g.Size())
	}
	if g.Class(0, 0) != Wall || g.Class(1, 1) != Swamp || g.Class(2, 1) != Plain {
		t.Fatalf("unexpected cells: %v %v %v", g.Class(0, 0), g.Class(1, 1), g.Class(2, 1))
	}
	if g.String() != "#..\n.~.\n..#\n" {
		t.Fatalf("String mismatch: %q", g.String())
	}
}

func TestParseRejectsRagged(t *testing.T) {
	if _, err := Parse("..\n...\n"); err == nil {
		t.Fatalf("expected ragged map to fail")
	}
	if _, err := Parse("..\n.x\n"); err == nil {
		t.Fatalf("expected bad glyph to fail")
	}
}

func TestOutOfBoundsIsWall(t *testing.T) {
	g := NewGrid(4)
	if g.Class(-1, 0) != Wall || g.Class(0, 4) != Wall {
		t.Fatalf("out of bounds must read as wall")
	}
}

func TestFromCellsCopies(t *testing.T) {
	cells := []Class{Plain, Wall, Swamp, Plain}
	g, err := FromCells(2, cells)
	if err != nil {
		t.Fatalf("FromCells: %v", err)
	}
	cells[0] = Wall
	if g.Class(0, 0) != Plain {
		t.Fatalf("grid must not alias input")
	}
	if _, err := FromCells(3, cells); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}
