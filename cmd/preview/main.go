// Command preview prints a room, its chosen base site and the compiled plan
// to the terminal.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/catalogs"
	"baseplan.ai/internal/sim/planner"
	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/planning/site"
	"baseplan.ai/internal/sim/tuning"
)

func main() {
	var (
		roomID     = flag.String("room", "W1N1", "room id")
		seed       = flag.Int64("seed", 1337, "room seed (ignored with -snapshot)")
		tier       = flag.Int("tier", 8, "show slots up to this tier")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		snapPath   = flag.String("snapshot", "", "render a room from this snapshot instead of generating one")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[preview] ", 0)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}

	p, err := planner.New(planner.Config{ID: "preview", Tuning: tune, Catalogs: cats})
	if err != nil {
		logger.Fatalf("planner: %v", err)
	}
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if err := p.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
	} else if _, err := p.GenerateRoom(*roomID, *seed, "me"); err != nil {
		logger.Fatalf("generate: %v", err)
	}

	room, err := p.Room(*roomID)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	var cand *site.Candidate
	base, err := p.Base(*roomID)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if base.Center == nil {
		c, err := p.PlaceBase(*roomID, tune.BaseSize)
		if err != nil {
			logger.Fatalf("place base: %v", err)
		}
		cand = &c
	}

	var plan *layout.Plan
	slots := 0
	if plan, err = p.CompilePlan(*roomID, tune.MaxTier); err != nil {
		logger.Printf("compile: %v", err)
	} else {
		slots = plan.UpTo(*tier).Len()
	}

	f := features{controller: room.Controller(), sources: room.Sources(), mineral: room.Mineral()}
	fmt.Println(header(*roomID, *tier, cand, slots))
	fmt.Print(render(room.Grid(), f, cand, plan, *tier))
	fmt.Println(legend())
}
