package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"baseplan.ai/internal/persistence/indexdb"
	plog "baseplan.ai/internal/persistence/log"
	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/catalogs"
	"baseplan.ai/internal/sim/planner"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/tuning"
	"baseplan.ai/internal/transport/admin"
	"baseplan.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		plannerID  = flag.String("id", "", "planner id (default: random)")
		rooms      = flag.String("rooms", "W1N1:1337", "rooms to generate on a fresh start, as id:seed[,id:seed...]")
		owner      = flag.String("owner", "me", "player the planner acts for")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the report index (reports/audit + catalogs + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[planner] ", log.LstdFlags|log.Lmicroseconds)

	id := strings.TrimSpace(*plannerID)
	if id == "" {
		id = "planner_" + uuid.NewString()[:8]
	}

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
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	store, err := indexdb.OpenBaseStore(filepath.Join(*dataDir, "bases.sqlite"))
	if err != nil {
		logger.Fatalf("open base store: %v", err)
	}
	defer store.Close()

	// Optional read-model index; the planner never reads it back.
	idx, err := openRuntimeIndex(*dataDir, id, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if ci, ok := idx.(catalogIndex); ok {
			if err := ci.UpsertCatalogs(cats, tune); err != nil {
				logger.Printf("index backend: upsert catalogs: %v", err)
			}
		}
	}

	p, err := planner.New(planner.Config{
		ID:       id,
		Tuning:   tune,
		Catalogs: cats,
		Store:    store,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("planner: %v", err)
	}

	snapDir := filepath.Join(*dataDir, "snapshots")
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad, _ = snapshot.Latest(snapDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if err := p.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d rooms=%d", filepath.Base(snapshotToLoad), p.CurrentTick(), len(p.RoomIDs()))
	} else {
		specs, err := parseRooms(*rooms)
		if err != nil {
			logger.Fatalf("rooms: %v", err)
		}
		for _, rs := range specs {
			if _, err := p.GenerateRoom(rs.id, rs.seed, *owner); err != nil {
				logger.Fatalf("generate room: %v", err)
			}
			logger.Printf("generated room=%s seed=%d", rs.id, rs.seed)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	snapMirror, err := buildSnapshotMirror(*dataDir, id, logger)
	if err != nil {
		logger.Fatalf("snapshot mirror: %v", err)
	}
	defer snapMirror.Close()

	logOpts := plog.LoggerOptions{}
	if snapMirror != nil {
		// Shorter segments so the mirror lags by minutes, not hours.
		logOpts.RotateLayout = "2006-01-02-15-04"
		logOpts.OnClose = func(path string) { snapMirror.Enqueue(path) }
	}
	reportLog := plog.NewReportLogger(*dataDir, logOpts)
	auditLog := plog.NewAuditLogger(*dataDir, logOpts)
	defer reportLog.Close()
	defer auditLog.Close()

	hub := ws.NewServer(p, logger, ws.Options{})
	p.SetReportLogger(multiReportLogger{reportLog, idx, hub})
	p.SetRetryLogger(hub)
	p.SetAuditLogger(multiAuditLogger{auditLog, idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	p.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(snapDir, snapshot.Name(snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
				snapMirror.Enqueue(path)
			}
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("planner stopped: %v", err)
		}
	}()

	api := admin.NewServer(p, logger, admin.Options{
		LoopbackOnly: !envBool("BP_ADMIN_REMOTE", defaultAdminRemote()),
	})
	r := api.Routes()
	r.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Get("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, id, p, hub, idx, snapMirror)
	})
	r.Get("/v1/ws", hub.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("planner=%s listening on %s", id, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

type roomSpec struct {
	id   string
	seed int64
}

// parseRooms reads "W1N1:1337,W2N1:42". A missing seed defaults to 1.
func parseRooms(s string) ([]roomSpec, error) {
	var out []roomSpec
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, seedStr, hasSeed := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("empty room id in %q", part)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate room %q", id)
		}
		seen[id] = true
		seed := int64(1)
		if hasSeed {
			n, err := strconv.ParseInt(strings.TrimSpace(seedStr), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("room %s seed: %w", id, err)
			}
			seed = n
		}
		out = append(out, roomSpec{id: id, seed: seed})
	}
	if len(out) == 0 {
		return nil, errors.New("no rooms given")
	}
	return out, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultAdminRemote() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiReportLogger []planner.ReportLogger

func (m multiReportLogger) WriteReport(r reconcile.Report) error {
	for _, l := range m {
		if l != nil {
			_ = l.WriteReport(r)
		}
	}
	return nil
}

type multiAuditLogger []planner.AuditLogger

func (m multiAuditLogger) WriteAudit(e plog.AuditEntry) error {
	for _, l := range m {
		if l != nil {
			_ = l.WriteAudit(e)
		}
	}
	return nil
}
