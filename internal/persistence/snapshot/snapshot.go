package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version   int    `json:"version"`
	PlannerID string `json:"planner_id"`
	Tick      uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	GridSize int   `json:"grid_size"`
	Seed     int64 `json:"seed"`

	Rooms     []RoomV1    `json:"rooms"`
	Bases     []BaseV1    `json:"bases"`
	Workforce []RequestV1 `json:"workforce,omitempty"`
}

type RoomV1 struct {
	ID              string `json:"id"`
	Owner           string `json:"owner"`
	ControllerOwner string `json:"controller_owner"`
	Tier            int    `json:"tier"`
	SiteLimit       int    `json:"site_limit"`
	BuildPerTick    int    `json:"build_per_tick"`
	BuilderRole     string `json:"builder_role"`

	Size int `json:"size"`
	// Terrain is the row-major class grid, run-length encoded.
	Terrain string `json:"terrain"`

	Controller [2]int   `json:"controller"`
	Sources    [][2]int `json:"sources"`
	Mineral    [2]int   `json:"mineral"`

	Structures []StructureV1 `json:"structures"`
	Sites      []SiteV1      `json:"sites"`
	NextID     uint64        `json:"next_id"`

	LinkRoles map[string]string `json:"link_roles,omitempty"`
	Transfers map[string]int    `json:"transfers,omitempty"`
}

type StructureV1 struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Pos      [2]int         `json:"pos"`
	Owner    string         `json:"owner,omitempty"`
	Goods    map[string]int `json:"goods,omitempty"`
	Cooldown int            `json:"cooldown,omitempty"`
}

type SiteV1 struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Pos  [2]int `json:"pos"`
}

type BaseV1 struct {
	ID         string   `json:"id"`
	Center     *[2]int  `json:"center,omitempty"`
	NoLayout   bool     `json:"no_layout"`
	DelayQueue []string `json:"delay_queue,omitempty"`
}

type RequestV1 struct {
	BaseID string `json:"base_id"`
	Role   string `json:"role"`
}

// Name is the file name for a snapshot taken at tick.
func Name(tick uint64) string { return fmt.Sprintf("%d.snap.zst", tick) }

// Latest returns the snapshot in dir with the highest tick.
func Latest(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	type cand struct {
		tick uint64
		name string
	}
	var cands []cand
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".snap.zst") {
			continue
		}
		t, err := strconv.ParseUint(strings.TrimSuffix(e.Name(), ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cands = append(cands, cand{tick: t, name: e.Name()})
	}
	if len(cands) == 0 {
		return "", false
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].tick < cands[j].tick })
	return filepath.Join(dir, cands[len(cands)-1].name), true
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	hb, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hb, &h); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
