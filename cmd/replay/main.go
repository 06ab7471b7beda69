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

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/klauspost/compress/zstd"

	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/catalogs"
	"baseplan.ai/internal/sim/planner"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/tuning"
)

// replay restores a snapshot and steps it forward, checking that every
// reconcile report it produces matches the one the live planner logged.
// Admin-triggered reconciles are not in the tick stream and make the replay
// diverge at the first tick after them.
func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst")
		reportsDir = flag.String("reports", "", "dir containing reports-*.jsonl.zst (optional)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d planner=%s tick=%d seed=%d rooms=%d bases=%d workforce=%d\n",
		snap.Header.Version, snap.Header.PlannerID, snap.Header.Tick, snap.Seed,
		len(snap.Rooms), len(snap.Bases), len(snap.Workforce))

	if *reportsDir == "" {
		return
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	logged, err := readReports(*reportsDir, snap.Header.Tick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read reports:", err)
		os.Exit(1)
	}
	if len(logged) == 0 {
		fmt.Fprintln(os.Stderr, "no reports after snapshot tick in", *reportsDir)
		os.Exit(1)
	}

	p, err := restore(snap, cats, tune)
	if err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		os.Exit(1)
	}
	checked, err := verify(p, logged)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d reports through tick=%d (from snapshot tick=%d)\n",
		checked, logged[len(logged)-1].Tick, snap.Header.Tick)
}

// restore builds an in-memory planner from snap. Periodic snapshots are off
// so stepping has no side effects beyond the reports.
func restore(snap snapshot.SnapshotV1, cats *catalogs.Catalogs, tune tuning.Tuning) (*planner.Planner, error) {
	tune.SnapshotEveryTicks = 0
	p, err := planner.New(planner.Config{
		ID:       snap.Header.PlannerID,
		Tuning:   tune,
		Catalogs: cats,
	})
	if err != nil {
		return nil, err
	}
	if err := p.ImportSnapshot(snap); err != nil {
		return nil, err
	}
	return p, nil
}

type collector struct{ reports []reconcile.Report }

func (c *collector) WriteReport(r reconcile.Report) error {
	c.reports = append(c.reports, r)
	return nil
}

// Run ids are random per run; nil and empty slices differ only by JSON
// omitempty.
var reportOpts = []cmp.Option{
	cmpopts.IgnoreFields(reconcile.Report{}, "RunID"),
	cmpopts.EquateEmpty(),
}

// verify steps p through the last logged tick and compares reports in order.
func verify(p *planner.Planner, logged []reconcile.Report) (int, error) {
	c := &collector{}
	p.SetReportLogger(c)

	last := logged[len(logged)-1].Tick
	next := 0
	for tick := p.CurrentTick(); tick <= last; tick++ {
		c.reports = c.reports[:0]
		p.Step(tick)
		for _, got := range c.reports {
			if next >= len(logged) || logged[next].Tick != tick {
				return next, fmt.Errorf("tick %d: unexpected report for base %s", tick, got.BaseID)
			}
			if diff := cmp.Diff(logged[next], got, reportOpts...); diff != "" {
				return next, fmt.Errorf("tick %d base %s: report mismatch (-logged +replayed):\n%s", tick, got.BaseID, diff)
			}
			next++
		}
		if next < len(logged) && logged[next].Tick == tick {
			return next, fmt.Errorf("tick %d: logged report for base %s was not reproduced", tick, logged[next].BaseID)
		}
	}
	return next, nil
}

// readReports returns logged reports with afterTick < tick <= toTick in log
// order. toTick 0 means no upper bound.
func readReports(dir string, afterTick, toTick uint64) ([]reconcile.Report, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "reports-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []reconcile.Report
	for _, name := range names {
		got, err := readReportFile(filepath.Join(dir, name), afterTick, toTick)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

func readReportFile(path string, afterTick, toTick uint64) ([]reconcile.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []reconcile.Report
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var r reconcile.Report
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if r.Tick <= afterTick || (toTick != 0 && r.Tick > toTick) {
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
