package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	plog "baseplan.ai/internal/persistence/log"
	"baseplan.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "capture":
			captureCmd(os.Args[2:])
			return
		case "bases", "base", "center", "reconcile", "snapshot":
			httpCmd(os.Args[1], os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, "snapshots")
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".snap.zst") {
			fmt.Println(e.Name())
		}
	}
}

// inspectCmd prints a per-room summary of a snapshot without starting a planner.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		path, _ = snapshot.Latest(filepath.Join(*dataDir, "snapshots"))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run the planner until it writes one")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	for _, s := range summarize(snap) {
		printJSON(s)
	}
}

type roomSummary struct {
	Tick       uint64         `json:"tick"`
	Room       string         `json:"room"`
	Owner      string         `json:"owner"`
	Controlled bool           `json:"controlled"`
	Tier       int            `json:"tier"`
	Center     *[2]int        `json:"center,omitempty"`
	NoLayout   bool           `json:"no_layout"`
	Delayed    int            `json:"delayed"`
	Sites      int            `json:"sites"`
	Structures map[string]int `json:"structures"`
	Workforce  []string       `json:"workforce,omitempty"`
}

func summarize(snap snapshot.SnapshotV1) []roomSummary {
	bases := map[string]snapshot.BaseV1{}
	for _, b := range snap.Bases {
		bases[b.ID] = b
	}
	roles := map[string][]string{}
	for _, r := range snap.Workforce {
		roles[r.BaseID] = append(roles[r.BaseID], r.Role)
	}

	out := make([]roomSummary, 0, len(snap.Rooms))
	for _, r := range snap.Rooms {
		s := roomSummary{
			Tick:       snap.Header.Tick,
			Room:       r.ID,
			Owner:      r.Owner,
			Controlled: r.Owner != "" && r.Owner == r.ControllerOwner,
			Tier:       r.Tier,
			Sites:      len(r.Sites),
			Structures: map[string]int{},
			Workforce:  roles[r.ID],
		}
		for _, st := range r.Structures {
			if st.Owner == r.Owner {
				s.Structures[st.Type]++
			}
		}
		if b, ok := bases[r.ID]; ok {
			s.Center = b.Center
			s.NoLayout = b.NoLayout
			s.Delayed = len(b.DelayQueue)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	baseID := fs.String("base", "", "base id filter (optional)")
	action := fs.String("action", "", "action filter, e.g. set_center (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	_ = fs.Parse(args)

	recs, err := readAudit(filepath.Join(*dataDir, "audit"), auditFilter{
		BaseID:    strings.TrimSpace(*baseID),
		Action:    strings.TrimSpace(*action),
		SinceTick: *sinceTick,
		ToTick:    *toTick,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	for _, e := range recs {
		printJSON(e)
	}
}

type auditFilter struct {
	BaseID    string
	Action    string
	SinceTick uint64
	ToTick    uint64 // 0 means no upper bound
}

func (f auditFilter) match(e plog.AuditEntry) bool {
	if f.BaseID != "" && e.BaseID != f.BaseID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if e.Tick < f.SinceTick {
		return false
	}
	return f.ToTick == 0 || e.Tick <= f.ToTick
}

// readAudit reads every audit segment in dir in name order, which is also
// time order.
func readAudit(dir string, f auditFilter) ([]plog.AuditEntry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "audit-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []plog.AuditEntry
	for _, name := range names {
		got, err := readAuditSegment(filepath.Join(dir, name), f)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

func readAuditSegment(path string, f auditFilter) ([]plog.AuditEntry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	dec, err := zstd.NewReader(fh)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []plog.AuditEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e plog.AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out, sc.Err()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
