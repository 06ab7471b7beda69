package main

import (
	"regexp"
	"strings"
	"testing"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planning/site"
	"baseplan.ai/internal/sim/world/terrain"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestRenderTerrainAndFeatures(t *testing.T) {
	g, err := terrain.Parse(`
#####
#..~#
#...#
#...#
#####
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := features{controller: geom.C(1, 1), sources: []geom.Coord{geom.C(2, 2)}, mineral: geom.C(3, 2)}
	cand := &site.Candidate{Corner: geom.C(1, 1), Size: 2}
	got := ansi.ReplaceAllString(render(g, f, cand, nil, 1), "")
	want := strings.Join([]string{"#####", "#K.~#", "#.$m#", "#...#", "#####", ""}, "\n")
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestHeaderMentionsSite(t *testing.T) {
	cand := &site.Candidate{Corner: geom.C(4, 5), Size: 11, Cost: 2}
	h := ansi.ReplaceAllString(header("W1N1", 3, cand, 17), "")
	for _, part := range []string{"W1N1", "tier 3", "size 11", "swamp 2", "slots 17"} {
		if !strings.Contains(h, part) {
			t.Fatalf("header %q missing %q", h, part)
		}
	}
}
