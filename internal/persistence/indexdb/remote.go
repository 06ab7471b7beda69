package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	plog "baseplan.ai/internal/persistence/log"
	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/planning/reconcile"
)

// RemoteConfig points a RemoteIndex at an HTTP ingest endpoint that accepts
// {"events":[...]} batches.
type RemoteConfig struct {
	Endpoint      string
	Token         string
	PlannerID     string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        *log.Logger
}

// RemoteIndex forwards reports, audits and snapshot records to a remote
// index in batches. A batch that fails to send is kept and retried on the
// next flush; the queue drops new events when full.
type RemoteIndex struct {
	cfg        RemoteConfig
	httpClient *http.Client

	ch   chan remoteEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	queueDropped atomic.Uint64
	flushFail    atomic.Uint64
	flushed      atomic.Uint64
}

type remoteEvent struct {
	Kind      string `json:"kind"`
	PlannerID string `json:"planner_id"`
	Payload   any    `json:"payload"`
}

type remoteSnapshotPayload struct {
	Tick      uint64 `json:"tick"`
	Path      string `json:"path"`
	Seed      int64  `json:"seed"`
	Rooms     int    `json:"rooms"`
	Bases     int    `json:"bases"`
	Workforce int    `json:"workforce"`
}

type RemoteStats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueDroppedTotal uint64 `json:"queue_dropped_total"`
	FlushFailTotal    uint64 `json:"flush_fail_total"`
	FlushedTotal      uint64 `json:"flushed_total"`
}

// maxRetained caps how many batches worth of events survive failed flushes.
const maxRetained = 8

func OpenRemote(cfg RemoteConfig) (*RemoteIndex, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.PlannerID = strings.TrimSpace(cfg.PlannerID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty index ingest endpoint")
	}
	if cfg.PlannerID == "" {
		return nil, fmt.Errorf("empty planner id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	d := &RemoteIndex{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan remoteEvent, 16384),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func (d *RemoteIndex) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *RemoteIndex) Stats() RemoteStats {
	if d == nil {
		return RemoteStats{}
	}
	return RemoteStats{
		QueueDepth:        len(d.ch),
		QueueDroppedTotal: d.queueDropped.Load(),
		FlushFailTotal:    d.flushFail.Load(),
		FlushedTotal:      d.flushed.Load(),
	}
}

func (d *RemoteIndex) WriteReport(r reconcile.Report) error {
	d.enqueue(remoteEvent{Kind: "report", Payload: r})
	return nil
}

func (d *RemoteIndex) WriteAudit(a plog.AuditEntry) error {
	d.enqueue(remoteEvent{Kind: "audit", Payload: a})
	return nil
}

func (d *RemoteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	d.enqueue(remoteEvent{Kind: "snapshot", Payload: remoteSnapshotPayload{
		Tick:      snap.Header.Tick,
		Path:      path,
		Seed:      snap.Seed,
		Rooms:     len(snap.Rooms),
		Bases:     len(snap.Bases),
		Workforce: len(snap.Workforce),
	}})
}

func (d *RemoteIndex) enqueue(ev remoteEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	ev.PlannerID = d.cfg.PlannerID
	select {
	case d.ch <- ev:
	default:
		d.queueDropped.Add(1)
		d.printf("remote index queue full; drop kind=%s", ev.Kind)
	}
}

func (d *RemoteIndex) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]remoteEvent, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.flushFail.Add(1)
			d.printf("remote index flush failed batch=%d err=%v", len(batch), err)
			if limit := maxRetained * d.cfg.BatchSize; len(batch) > limit {
				batch = append(batch[:0], batch[len(batch)-limit:]...)
			}
			return
		}
		d.flushed.Add(uint64(len(batch)))
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *RemoteIndex) sendBatch(events []remoteEvent) error {
	body := struct {
		Events []remoteEvent `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("x-index-token", d.cfg.Token)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func (d *RemoteIndex) printf(format string, args ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
