package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/catalogs"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/tuning"
)

// captureCmd prints a layout.json template built from a hand-placed base in
// a snapshot room.
func captureCmd(args []string) {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	roomID := fs.String("room", "", "room id")
	at := fs.String("at", "", "center as x,y (default: the base center in the snapshot)")
	configDir := fs.String("configs", "./configs", "config directory")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		path, _ = snapshot.Latest(filepath.Join(*dataDir, "snapshots"))
	}
	if path == "" || strings.TrimSpace(*roomID) == "" {
		fmt.Fprintln(os.Stderr, "capture needs -room and a snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tune, err := tuning.Load(filepath.Join(*configDir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	tmpl, err := captureTemplate(snap, strings.TrimSpace(*roomID), strings.TrimSpace(*at), cats, tune)
	if err != nil {
		fmt.Fprintln(os.Stderr, "capture:", err)
		os.Exit(1)
	}
	printJSON(tmpl)
}

func captureTemplate(snap snapshot.SnapshotV1, roomID, at string, cats *catalogs.Catalogs, tune tuning.Tuning) (*layout.Template, error) {
	var room *snapshot.RoomV1
	for i := range snap.Rooms {
		if snap.Rooms[i].ID == roomID {
			room = &snap.Rooms[i]
			break
		}
	}
	if room == nil {
		return nil, fmt.Errorf("room %s not in snapshot", roomID)
	}

	var center *geom.Coord
	if at != "" {
		x, y, err := parseXY(at)
		if err != nil {
			return nil, err
		}
		c := geom.C(x, y)
		center = &c
	} else {
		for _, b := range snap.Bases {
			if b.ID == roomID && b.Center != nil {
				c := geom.C(b.Center[0], b.Center[1])
				center = &c
			}
		}
	}
	if center == nil {
		return nil, fmt.Errorf("room %s has no base center; pass -at", roomID)
	}

	var placed []layout.Placed
	for _, st := range room.Structures {
		if st.Owner != room.Owner {
			continue
		}
		typ, err := structure.Parse(st.Type)
		if err != nil {
			return nil, fmt.Errorf("structure %s: %w", st.ID, err)
		}
		placed = append(placed, layout.Placed{Type: typ, Pos: geom.C(st.Pos[0], st.Pos[1])})
	}
	return layout.Capture(placed, *center, tune.BaseSize, tune.MaxTier, cats.Structures.Allowance), nil
}
