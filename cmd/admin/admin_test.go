package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"baseplan.ai/internal/persistence/indexdb"
	plog "baseplan.ai/internal/persistence/log"
	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/catalogs"
	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/tuning"
)

func TestSummarize(t *testing.T) {
	center := [2]int{25, 25}
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, Tick: 600},
		Rooms: []snapshot.RoomV1{
			{ID: "W2N1", Owner: "me", ControllerOwner: "them", Tier: 2},
			{
				ID: "W1N1", Owner: "me", ControllerOwner: "me", Tier: 4,
				Structures: []snapshot.StructureV1{
					{ID: "s1", Type: "spawn", Owner: "me"},
					{ID: "s2", Type: "extension", Owner: "me"},
					{ID: "s3", Type: "extension", Owner: "me"},
					{ID: "s4", Type: "tower", Owner: "them"},
				},
				Sites: []snapshot.SiteV1{{ID: "c1", Type: "road"}},
			},
		},
		Bases:     []snapshot.BaseV1{{ID: "W1N1", Center: &center, DelayQueue: []string{"1:1:2"}}},
		Workforce: []snapshot.RequestV1{{BaseID: "W1N1", Role: "builder"}},
	}

	got := summarize(snap)
	want := []roomSummary{
		{
			Tick: 600, Room: "W1N1", Owner: "me", Controlled: true, Tier: 4,
			Center: &center, Delayed: 1, Sites: 1,
			Structures: map[string]int{"spawn": 1, "extension": 2},
			Workforce:  []string{"builder"},
		},
		{Tick: 600, Room: "W2N1", Owner: "me", Tier: 2, Structures: map[string]int{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestReadAuditFilters(t *testing.T) {
	dir := t.TempDir()
	l := plog.NewAuditLogger(dir, plog.LoggerOptions{})
	for _, e := range []plog.AuditEntry{
		{Tick: 5, BaseID: "W1N1", Action: "set_center"},
		{Tick: 9, BaseID: "W2N1", Action: "set_center"},
		{Tick: 12, BaseID: "W1N1", Action: "set_auto"},
		{Tick: 30, BaseID: "W1N1", Action: "set_center"},
	} {
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := readAudit(filepath.Join(dir, "audit"), auditFilter{BaseID: "W1N1", Action: "set_center", ToTick: 20})
	if err != nil {
		t.Fatalf("readAudit: %v", err)
	}
	want := []plog.AuditEntry{{Tick: 5, BaseID: "W1N1", Action: "set_center"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("audit mismatch (-want +got):\n%s", diff)
	}

	all, err := readAudit(filepath.Join(dir, "audit"), auditFilter{SinceTick: 9})
	if err != nil || len(all) != 3 {
		t.Fatalf("since filter: n=%d err=%v", len(all), err)
	}
}

func TestBuildCall(t *testing.T) {
	c, err := buildCall("center", "W1N1", "12, 30")
	if err != nil {
		t.Fatalf("center: %v", err)
	}
	if c.Method != http.MethodPut || c.Path != "/api/bases/W1N1/center" || string(c.Body) != `{"x":12,"y":30}` {
		t.Fatalf("center call=%+v body=%s", c, c.Body)
	}
	if c, _ := buildCall("center", "W1N1", "clear"); c.Method != http.MethodDelete {
		t.Fatalf("clear should DELETE, got %s", c.Method)
	}
	if c, _ := buildCall("snapshot", "", ""); c.Method != http.MethodPost || c.Path != "/api/snapshot" {
		t.Fatalf("snapshot call=%+v", c)
	}
	if _, err := buildCall("reconcile", "", ""); err == nil {
		t.Fatalf("reconcile without base should fail")
	}
	if _, err := buildCall("center", "W1N1", "12"); err == nil {
		t.Fatalf("malformed center should fail")
	}
	if _, err := buildCall("nuke", "", ""); err == nil {
		t.Fatalf("unknown verb should fail")
	}
}

func TestDBQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = idx.WriteReport(reconcile.Report{RunID: "a", BaseID: "W1N1", Tick: 20, Tier: 2, Placed: 4, BuilderRequested: true})
	_ = idx.WriteReport(reconcile.Report{RunID: "b", BaseID: "W2N1", Tick: 40, Tier: 1})
	_ = idx.WriteAudit(plog.AuditEntry{Tick: 3, BaseID: "W1N1", Action: "set_tier", Detail: "2"})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	q, args, err := dbQuery("reports", "W1N1", 0)
	if err != nil {
		t.Fatalf("dbQuery: %v", err)
	}
	rows, err := queryRows(db, "reports", q, args...)
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("reports rows=%d", len(rows))
	}
	b, _ := json.Marshal(rows[0])
	if !strings.Contains(string(b), `"placed":4`) || !strings.Contains(string(b), `"builder_requested":true`) {
		t.Fatalf("report row=%s", b)
	}

	q, args, _ = dbQuery("audits", "", 5)
	rows, err = queryRows(db, "audits", q, args...)
	if err != nil || len(rows) != 1 {
		t.Fatalf("audits rows=%d err=%v", len(rows), err)
	}
	b, _ = json.Marshal(rows[0])
	if !strings.Contains(string(b), `"action":"set_tier"`) {
		t.Fatalf("audit row=%s", b)
	}

	if _, _, err := dbQuery("agents", "", 0); err == nil {
		t.Fatalf("unknown query should fail")
	}
}

func TestCaptureTemplate(t *testing.T) {
	cats, err := catalogs.Defaults()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	center := [2]int{20, 20}
	snap := snapshot.SnapshotV1{
		Rooms: []snapshot.RoomV1{{
			ID: "W1N1", Owner: "me",
			Structures: []snapshot.StructureV1{
				{ID: "s1", Type: "spawn", Pos: [2]int{19, 19}, Owner: "me"},
				{ID: "s2", Type: "extension", Pos: [2]int{22, 20}, Owner: "me"},
				{ID: "s3", Type: "tower", Pos: [2]int{21, 21}, Owner: "them"},
				{ID: "s4", Type: "extension", Pos: [2]int{40, 40}, Owner: "me"},
			},
		}},
		Bases: []snapshot.BaseV1{{ID: "W1N1", Center: &center}},
	}

	tmpl, err := captureTemplate(snap, "W1N1", "", cats, tuning.Defaults())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if diff := cmp.Diff([]layout.Offset{layout.Fixed(-1, -1)}, tmpl.Offsets(1, structure.Spawn)); diff != "" {
		t.Fatalf("spawn (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]layout.Offset{layout.Fixed(2, 0)}, tmpl.Offsets(2, structure.Extension)); diff != "" {
		t.Fatalf("extension (-want +got):\n%s", diff)
	}
	if got := tmpl.Offsets(3, structure.Tower); len(got) != 0 {
		t.Fatalf("foreign tower captured: %v", got)
	}

	shifted, err := captureTemplate(snap, "W1N1", "19,19", cats, tuning.Defaults())
	if err != nil {
		t.Fatalf("capture -at: %v", err)
	}
	if got := shifted.Offsets(1, structure.Spawn); len(got) != 1 || got[0] != layout.Fixed(0, 0) {
		t.Fatalf("spawn with explicit center=%v", got)
	}

	snap.Bases = nil
	if _, err := captureTemplate(snap, "W1N1", "", cats, tuning.Defaults()); err == nil {
		t.Fatalf("missing center should fail")
	}
	if _, err := captureTemplate(snap, "E5S5", "1,1", cats, tuning.Defaults()); err == nil {
		t.Fatalf("unknown room should fail")
	}
}
