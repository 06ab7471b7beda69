package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/planning/site"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/world/terrain"
)

var (
	plainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A5568"))
	wallStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	swampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2F855A"))
	footprintStyle = lipgloss.NewStyle().Background(lipgloss.Color("#1A202C"))
	featureStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	coreStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	roadStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	defenseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	legendStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

var glyphs = map[structure.Type]rune{
	structure.Spawn:      'S',
	structure.Extension:  'e',
	structure.Tower:      'T',
	structure.Storage:    'O',
	structure.Link:       'L',
	structure.Container:  'C',
	structure.Terminal:   'M',
	structure.Extractor:  'X',
	structure.Lab:        'b',
	structure.Factory:    'F',
	structure.Observer:   'V',
	structure.PowerSpawn: 'P',
	structure.Nuker:      'N',
	structure.Road:       '+',
	structure.Rampart:    'R',
	structure.Wall:       'W',
}

// features are fixed room objects drawn over terrain.
type features struct {
	controller geom.Coord
	sources    []geom.Coord
	mineral    geom.Coord
}

// render draws the room with the chosen footprint shaded and every planned
// slot up to tier. When a cell holds several slots the non-road one wins.
func render(grid terrain.Query, f features, cand *site.Candidate, plan *layout.Plan, tier int) string {
	type cell struct {
		r     rune
		style lipgloss.Style
	}
	size := grid.Size()
	cells := make([]cell, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := cell{r: '.', style: plainStyle}
			switch grid.Class(x, y) {
			case terrain.Wall:
				c = cell{r: '#', style: wallStyle}
			case terrain.Swamp:
				c = cell{r: '~', style: swampStyle}
			}
			cells[y*size+x] = c
		}
	}
	set := func(p geom.Coord, r rune, st lipgloss.Style) {
		if p.In(size) {
			cells[p.Y*size+p.X] = cell{r: r, style: st}
		}
	}

	if plan != nil {
		for _, s := range plan.UpTo(tier).Slots() {
			if !s.Pos.In(size) {
				continue
			}
			st := coreStyle
			switch s.Type {
			case structure.Road:
				if cells[s.Pos.Y*size+s.Pos.X].r != '.' && cells[s.Pos.Y*size+s.Pos.X].r != '~' {
					continue
				}
				st = roadStyle
			case structure.Rampart, structure.Wall:
				st = defenseStyle
			}
			set(s.Pos, glyphs[s.Type], st)
		}
	}
	set(f.controller, 'K', featureStyle)
	set(f.mineral, 'm', featureStyle)
	for _, s := range f.sources {
		set(s, '$', featureStyle)
	}

	var b strings.Builder
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := cells[y*size+x]
			st := c.style
			if cand != nil && cand.Contains(geom.C(x, y)) {
				st = st.Inherit(footprintStyle)
			}
			b.WriteString(st.Render(string(c.r)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func header(roomID string, tier int, cand *site.Candidate, slots int) string {
	line := fmt.Sprintf("%s  tier %d", roomID, tier)
	if cand != nil {
		line += fmt.Sprintf("  site %s size %d swamp %d  center %s", cand.Corner, cand.Size, cand.Cost, cand.Center())
	}
	line += fmt.Sprintf("  slots %d", slots)
	return titleStyle.Render(line)
}

func legend() string {
	return legendStyle.Render("K controller  $ source  m mineral  S spawn  e extension  T tower  O storage  L link  C container  + road  R rampart  W wall")
}
