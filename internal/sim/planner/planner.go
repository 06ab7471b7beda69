// Package planner hosts the base planner. It owns the simulated rooms, the
// plan cache and the base store and runs every reconcile on one goroutine;
// transports reach it through Call.
package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	plog "baseplan.ai/internal/persistence/log"
	"baseplan.ai/internal/persistence/snapshot"
	"baseplan.ai/internal/sim/base"
	"baseplan.ai/internal/sim/catalogs"
	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/tuning"
	"baseplan.ai/internal/sim/workforce"
	"baseplan.ai/internal/sim/world"
	"baseplan.ai/internal/sim/world/logic/movement"
	"baseplan.ai/internal/sim/world/terrain/gen"
)

type Config struct {
	ID       string
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs

	// Seed is recorded in snapshots; rooms carry their own terrain.
	Seed int64

	// Store defaults to an in-memory store.
	Store  base.Store
	Board  *workforce.Board
	Logger *log.Logger
}

type ReportLogger interface {
	WriteReport(r reconcile.Report) error
}

type RetryLogger interface {
	WriteRetry(tick uint64, r reconcile.RetryReport) error
}

type AuditLogger interface {
	WriteAudit(e plog.AuditEntry) error
}

type Planner struct {
	id     string
	seed   int64
	tune   tuning.Tuning
	cats   *catalogs.Catalogs
	store  base.Store
	board  *workforce.Board
	logger *log.Logger
	costs  movement.Costs

	tuningDigest string

	compiler *layout.Compiler
	cache    *layout.Cache
	rec      *reconcile.Reconciler
	retry    *reconcile.Retrier

	rooms map[string]*world.Room
	order []string

	tick atomic.Uint64

	reportLog    ReportLogger
	retryLog     RetryLogger
	auditLog     AuditLogger
	snapshotSink chan<- snapshot.SnapshotV1

	calls    chan call
	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config) (*Planner, error) {
	t := cfg.Tuning
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("planner: tuning: %w", err)
	}
	cats := cfg.Catalogs
	if cats == nil {
		var err error
		if cats, err = catalogs.Defaults(); err != nil {
			return nil, fmt.Errorf("planner: %w", err)
		}
	}
	tpl := cats.Layout.Template
	if tpl == nil {
		return nil, fmt.Errorf("planner: layout catalog has no template")
	}
	if tpl.BaseSize != t.BaseSize {
		return nil, fmt.Errorf("planner: tuning base_size %d does not match layout base_size %d", t.BaseSize, tpl.BaseSize)
	}

	roadRule, err := layout.RuleFrom(t.Roads.TierExpr, t.Roads.TierStride, t.Roads.TierOffset)
	if err != nil {
		return nil, fmt.Errorf("planner: roads tier rule: %w", err)
	}
	rampartRule, err := layout.RuleFrom(t.Perimeter.TierExpr, t.Perimeter.TierStride, t.Perimeter.TierOffset)
	if err != nil {
		return nil, fmt.Errorf("planner: perimeter tier rule: %w", err)
	}

	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)

	p := &Planner{
		id:           cfg.ID,
		seed:         cfg.Seed,
		tune:         t,
		cats:         cats,
		store:        cfg.Store,
		board:        cfg.Board,
		logger:       cfg.Logger,
		costs:        movement.DefaultCosts(),
		tuningDigest: hex.EncodeToString(sum[:]),
		cache:        layout.NewCache(),
		rooms:        map[string]*world.Room{},
		calls:        make(chan call, 64),
		stop:         make(chan struct{}),
	}
	if p.store == nil {
		p.store = base.NewMemoryStore()
	}
	if p.board == nil {
		p.board = workforce.NewBoard()
	}
	p.compiler = &layout.Compiler{
		Template:         tpl,
		MaxTier:          t.MaxTier,
		LinkSourceRadius: t.LinkSourceRadius,
		Overlays: []layout.Overlay{
			layout.Roads(roadRule),
			layout.Perimeter(t.Perimeter.Rings, t.Perimeter.Gap, rampartRule),
		},
	}
	p.rec = &reconcile.Reconciler{
		Store:            p.store,
		Plans:            p.plan,
		Policy:           cats.Structures,
		Workforce:        p.board,
		Logger:           p.logger,
		BuilderRole:      t.BuilderRole,
		CriticalGoodsMin: t.CriticalGoodsMin,
	}
	p.retry = &reconcile.Retrier{
		Store:       p.store,
		Workforce:   p.board,
		Logger:      p.logger,
		BuilderRole: t.BuilderRole,
	}
	return p, nil
}

func (p *Planner) ID() string                     { return p.id }
func (p *Planner) Tuning() tuning.Tuning          { return p.tune }
func (p *Planner) Catalogs() *catalogs.Catalogs   { return p.cats }
func (p *Planner) Board() *workforce.Board        { return p.board }
func (p *Planner) CurrentTick() uint64            { return p.tick.Load() }
func (p *Planner) TuningDigest() string           { return p.tuningDigest }
func (p *Planner) SetReportLogger(l ReportLogger) { p.reportLog = l }
func (p *Planner) SetRetryLogger(l RetryLogger)   { p.retryLog = l }
func (p *Planner) SetAuditLogger(l AuditLogger)   { p.auditLog = l }

func (p *Planner) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { p.snapshotSink = ch }

// AddRoom registers a room. The room id doubles as its base id.
func (p *Planner) AddRoom(r *world.Room) error {
	if r == nil || r.ID() == "" {
		return fmt.Errorf("room id: %w", base.ErrInvalidArgument)
	}
	if _, ok := p.rooms[r.ID()]; ok {
		return fmt.Errorf("room %s already registered: %w", r.ID(), base.ErrInvalidArgument)
	}
	p.rooms[r.ID()] = r
	p.order = append(p.order, r.ID())
	sort.Strings(p.order)
	return nil
}

// GenerateRoom builds a fresh room from seed, owned and controlled by owner,
// and registers it.
func (p *Planner) GenerateRoom(id string, seed int64, owner string) (*world.Room, error) {
	cfg := world.RoomConfig{
		ID:              id,
		Owner:           owner,
		ControllerOwner: owner,
		Tier:            1,
		SiteLimit:       p.tune.SiteLimit,
		BuildPerTick:    p.tune.BuildPerTick,
		BuilderRole:     p.tune.BuilderRole,
	}
	r, ok := world.Generate(cfg, gen.DefaultParams(seed, p.tune.GridSize), p.cats.Structures)
	if !ok {
		return nil, fmt.Errorf("room %s: seed %d leaves no room for features", id, seed)
	}
	if err := p.AddRoom(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Room returns the registered room for id.
func (p *Planner) Room(id string) (*world.Room, error) {
	r, ok := p.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", id, base.ErrNotFound)
	}
	return r, nil
}

// RoomIDs lists registered rooms in sorted order.
func (p *Planner) RoomIDs() []string { return append([]string(nil), p.order...) }

// loadState returns the stored state, or a fresh one for a base never saved.
func (p *Planner) loadState(id string) (base.State, error) {
	st, err := p.store.Load(id)
	if errors.Is(err, base.ErrNotFound) {
		return base.State{ID: id}, nil
	}
	return st, err
}

func (p *Planner) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

func (p *Planner) audit(baseID, action, detail string) {
	if p.auditLog == nil {
		return
	}
	e := plog.AuditEntry{Tick: p.tick.Load(), BaseID: baseID, Action: action, Detail: detail, Actor: "admin"}
	if err := p.auditLog.WriteAudit(e); err != nil {
		p.logf("audit base=%s action=%s: %v", baseID, action, err)
	}
}

func (p *Planner) emitReport(r reconcile.Report) {
	if p.reportLog == nil {
		return
	}
	if err := p.reportLog.WriteReport(r); err != nil {
		p.logf("report base=%s run=%s: %v", r.BaseID, r.RunID, err)
	}
}

func (p *Planner) emitRetry(tick uint64, r reconcile.RetryReport) {
	if p.retryLog == nil {
		return
	}
	if err := p.retryLog.WriteRetry(tick, r); err != nil {
		p.logf("retry report base=%s: %v", r.BaseID, err)
	}
}
