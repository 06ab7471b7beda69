package main

import (
	"fmt"
	"io"

	"baseplan.ai/internal/persistence/indexdb"
	"baseplan.ai/internal/persistence/mirror"
	"baseplan.ai/internal/sim/planner"
	"baseplan.ai/internal/transport/ws"
)

// writeMetrics emits a minimal Prometheus exposition.
func writeMetrics(w io.Writer, id string, p *planner.Planner, hub *ws.Server, idx runtimeIndex, m *mirror.Mirror) {
	fmt.Fprintf(w, "# HELP baseplan_tick Current planner tick.\n")
	fmt.Fprintf(w, "# TYPE baseplan_tick gauge\n")
	fmt.Fprintf(w, "baseplan_tick{planner=%q} %d\n", id, p.CurrentTick())

	fmt.Fprintf(w, "# HELP baseplan_rooms Rooms owned by the planner.\n")
	fmt.Fprintf(w, "# TYPE baseplan_rooms gauge\n")
	fmt.Fprintf(w, "baseplan_rooms{planner=%q} %d\n", id, len(p.RoomIDs()))

	fmt.Fprintf(w, "# HELP baseplan_workforce_pending Outstanding worker role requests.\n")
	fmt.Fprintf(w, "# TYPE baseplan_workforce_pending gauge\n")
	fmt.Fprintf(w, "baseplan_workforce_pending{planner=%q} %d\n", id, len(p.Board().Pending()))

	fmt.Fprintf(w, "# HELP baseplan_ws_clients Connected report stream clients.\n")
	fmt.Fprintf(w, "# TYPE baseplan_ws_clients gauge\n")
	fmt.Fprintf(w, "baseplan_ws_clients{planner=%q} %d\n", id, hub.Clients())

	switch ix := idx.(type) {
	case *indexdb.SQLiteIndex:
		s := ix.Stats()
		fmt.Fprintf(w, "# HELP baseplan_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(w, "# TYPE baseplan_index_queue_depth gauge\n")
		fmt.Fprintf(w, "baseplan_index_queue_depth{backend=%q} %d\n", "sqlite", s.QueueDepth)
		fmt.Fprintf(w, "# HELP baseplan_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(w, "# TYPE baseplan_index_dropped_total counter\n")
		fmt.Fprintf(w, "baseplan_index_dropped_total{backend=%q,kind=%q} %d\n", "sqlite", "report", s.DropReportTotal)
		fmt.Fprintf(w, "baseplan_index_dropped_total{backend=%q,kind=%q} %d\n", "sqlite", "audit", s.DropAuditTotal)
		fmt.Fprintf(w, "baseplan_index_dropped_total{backend=%q,kind=%q} %d\n", "sqlite", "snapshot", s.DropSnapshotTotal)
	case *indexdb.RemoteIndex:
		s := ix.Stats()
		fmt.Fprintf(w, "# HELP baseplan_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(w, "# TYPE baseplan_index_queue_depth gauge\n")
		fmt.Fprintf(w, "baseplan_index_queue_depth{backend=%q} %d\n", "remote", s.QueueDepth)
		fmt.Fprintf(w, "# HELP baseplan_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(w, "# TYPE baseplan_index_dropped_total counter\n")
		fmt.Fprintf(w, "baseplan_index_dropped_total{backend=%q} %d\n", "remote", s.QueueDroppedTotal)
		fmt.Fprintf(w, "# HELP baseplan_index_flush_fail_total Failed remote flushes.\n")
		fmt.Fprintf(w, "# TYPE baseplan_index_flush_fail_total counter\n")
		fmt.Fprintf(w, "baseplan_index_flush_fail_total %d\n", s.FlushFailTotal)
	}

	if m != nil {
		s := m.Stats()
		fmt.Fprintf(w, "# HELP baseplan_mirror_queue_depth Snapshot uploads waiting.\n")
		fmt.Fprintf(w, "# TYPE baseplan_mirror_queue_depth gauge\n")
		fmt.Fprintf(w, "baseplan_mirror_queue_depth %d\n", s.QueueDepth)
		fmt.Fprintf(w, "# HELP baseplan_mirror_uploads_total Snapshot uploads by outcome.\n")
		fmt.Fprintf(w, "# TYPE baseplan_mirror_uploads_total counter\n")
		fmt.Fprintf(w, "baseplan_mirror_uploads_total{result=%q} %d\n", "ok", s.UploadedTotal)
		fmt.Fprintf(w, "baseplan_mirror_uploads_total{result=%q} %d\n", "failed", s.FailedTotal)
		fmt.Fprintf(w, "baseplan_mirror_uploads_total{result=%q} %d\n", "dropped", s.DroppedTotal)
	}
}
