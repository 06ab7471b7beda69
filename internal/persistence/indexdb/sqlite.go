package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	plog "baseplan.ai/internal/persistence/log"
	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/catalogs"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index of reconcile reports, audits and
// snapshots. Writes are queued to a single writer goroutine and dropped when
// the queue is full; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropReport   atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqReport reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	report   reconcile.Report
	audit    plog.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick      uint64
	Path      string
	Seed      int64
	Rooms     int
	Bases     int
	Workforce int
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropReportTotal   uint64 `json:"drop_report_total"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			run_id TEXT PRIMARY KEY,
			base_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			tier INTEGER NOT NULL,
			placed INTEGER NOT NULL,
			satisfied INTEGER NOT NULL,
			deferred INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			blocked INTEGER NOT NULL,
			destroyed INTEGER NOT NULL,
			builder_requested INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_base_tick ON reports(base_id, tick);`,
		`CREATE TABLE IF NOT EXISTS failures (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			type TEXT NOT NULL,
			code INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			base_id TEXT NOT NULL,
			action TEXT NOT NULL,
			actor TEXT,
			detail TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_base_tick ON audits(base_id, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			rooms INTEGER NOT NULL,
			bases INTEGER NOT NULL,
			workforce INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropReportTotal:   s.dropReport.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteReport(r reconcile.Report) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqReport, report: r}:
	default:
		s.dropReport.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(a plog.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: a}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:      snap.Header.Tick,
		Path:      path,
		Seed:      snap.Seed,
		Rooms:     len(snap.Rooms),
		Bases:     len(snap.Bases),
		Workforce: len(snap.Workforce),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertCatalogs stores the catalogs and tuning actually in effect, keyed by
// name with their digests.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	rows, err := catalogRows(cats, tune)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type catalogRow struct {
	name   string
	digest string
	json   []byte
}

func catalogRows(cats *catalogs.Catalogs, tune tuning.Tuning) ([]catalogRow, error) {
	var rows []catalogRow
	if cats != nil {
		if cats.Layout.Template != nil {
			b, err := json.Marshal(cats.Layout.Template)
			if err != nil {
				return nil, fmt.Errorf("layout catalog: %w", err)
			}
			rows = append(rows, catalogRow{name: "layout", digest: cats.Layout.Digest, json: b})
		}
		defs := cats.Structures.Defs()
		b, err := json.Marshal(defs)
		if err != nil {
			return nil, fmt.Errorf("structure catalog: %w", err)
		}
		rows = append(rows, catalogRow{name: "structures", digest: cats.Structures.Digest, json: b})
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	sum := sha256.Sum256(b)
	rows = append(rows, catalogRow{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	return rows, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertReport, _ := s.db.Prepare(`INSERT OR REPLACE INTO reports(run_id,base_id,tick,tier,placed,satisfied,deferred,skipped,blocked,destroyed,builder_requested,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertFailure, _ := s.db.Prepare(`INSERT OR REPLACE INTO failures(run_id,seq,x,y,type,code) VALUES(?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,base_id,action,actor,detail,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,seed,rooms,bases,workforce) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertReport, insertFailure, insertAudit, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqReport:
			rp := r.report
			if insertReport == nil {
				break
			}
			raw, _ := json.Marshal(rp)
			if _, err := tx.Stmt(insertReport).Exec(
				rp.RunID,
				rp.BaseID,
				int64(rp.Tick),
				rp.Tier,
				rp.Placed,
				rp.Satisfied,
				rp.Deferred,
				rp.Skipped,
				rp.Blocked,
				len(rp.Destroyed),
				boolInt(rp.BuilderRequested),
				string(raw),
			); err != nil {
				rollback()
				continue
			}
			opCount++
			for i, f := range rp.Failures {
				if insertFailure == nil {
					break
				}
				if _, err := tx.Stmt(insertFailure).Exec(rp.RunID, i, f.Pos.X, f.Pos.Y, f.Type.String(), f.Code); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			if insertAudit == nil {
				break
			}
			raw, _ := json.Marshal(a)
			if _, err := tx.Stmt(insertAudit).Exec(int64(a.Tick), seq, a.BaseID, a.Action, a.Actor, a.Detail, string(raw)); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot == nil {
				break
			}
			if _, err := tx.Stmt(insertSnapshot).Exec(int64(sn.Tick), sn.Path, sn.Seed, sn.Rooms, sn.Bases, sn.Workforce); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		flushIfNeeded()
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
