package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"baseplan.ai/internal/protocol"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planner"
	"baseplan.ai/internal/sim/planning/reconcile"
	"baseplan.ai/internal/sim/structure"
	"baseplan.ai/internal/sim/tuning"
	"baseplan.ai/internal/sim/world"
	"baseplan.ai/internal/sim/world/terrain"
	"baseplan.ai/internal/sim/world/terrain/gen"
)

func newTestAPI(t *testing.T, opts Options) http.Handler {
	t.Helper()
	tune := tuning.Defaults()
	tune.AutoPlace = false
	tune.TickRateHz = 50
	p, err := planner.New(planner.Config{ID: "test", Tuning: tune})
	if err != nil {
		t.Fatalf("planner: %v", err)
	}
	g := terrain.NewGrid(50)
	for i := 0; i < 50; i++ {
		g.Set(i, 0, terrain.Wall)
		g.Set(i, 49, terrain.Wall)
		g.Set(0, i, terrain.Wall)
		g.Set(49, i, terrain.Wall)
	}
	room := world.NewRoom(world.RoomConfig{
		ID: "W1N1", Owner: "me", ControllerOwner: "me", Tier: 1,
		SiteLimit: 100, BuildPerTick: 1, BuilderRole: "builder",
	}, g, gen.Features{
		Controller: geom.C(10, 10),
		Sources:    []geom.Coord{geom.C(38, 12)},
		Mineral:    geom.C(30, 40),
	}, p.Catalogs().Structures)
	if err := p.AddRoom(room); err != nil {
		t.Fatalf("AddRoom: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = p.Run(ctx) }()
	t.Cleanup(cancel)
	return NewServer(p, nil, opts).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndList(t *testing.T) {
	h := newTestAPI(t, Options{})
	if rec := do(t, h, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/bases", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", rec.Code, rec.Body.String())
	}
	bases := decode[[]planner.BaseView](t, rec)
	if len(bases) != 1 || bases[0].ID != "W1N1" || !bases[0].AutoLayout {
		t.Fatalf("bases=%+v", bases)
	}
}

func TestUnknownBase(t *testing.T) {
	h := newTestAPI(t, Options{})
	rec := do(t, h, http.MethodGet, "/api/bases/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	if e := decode[errorBody](t, rec); e.Code != protocol.ErrNotFound {
		t.Fatalf("code=%s", e.Code)
	}
}

func TestCenterPlanReconcile(t *testing.T) {
	h := newTestAPI(t, Options{})

	rec := do(t, h, http.MethodPut, "/api/bases/W1N1/center", `{"x":60,"y":3}`)
	if rec.Code != http.StatusBadRequest || decode[errorBody](t, rec).Code != protocol.ErrInvalidArgs {
		t.Fatalf("out of grid: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPut, "/api/bases/W1N1/center", `{"x":25}`)
	if rec.Code != http.StatusBadRequest || decode[errorBody](t, rec).Code != protocol.ErrBadRequest {
		t.Fatalf("missing y: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPut, "/api/bases/W1N1/center", `{"x":25,"y":25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set center: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if v := decode[planner.BaseView](t, rec); v.Center == nil || *v.Center != geom.C(25, 25) {
		t.Fatalf("center=%v", v.Center)
	}

	rec = do(t, h, http.MethodGet, "/api/bases/W1N1/plan?tier=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("plan: status=%d body=%s", rec.Code, rec.Body.String())
	}
	plan := decode[planner.PlanView](t, rec)
	if len(plan.Slots) != 1 || plan.Slots[0].Type != structure.Spawn || plan.Slots[0].Pos != geom.C(24, 24) {
		t.Fatalf("slots=%+v", plan.Slots)
	}
	if rec := do(t, h, http.MethodGet, "/api/bases/W1N1/plan?tier=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad tier: status=%d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/bases/W1N1/reconcile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rep := decode[reconcile.Report](t, rec); rep.BaseID != "W1N1" || rep.RunID == "" {
		t.Fatalf("report=%+v", rep)
	}

	rec = do(t, h, http.MethodDelete, "/api/bases/W1N1/center", "")
	if rec.Code != http.StatusOK || decode[planner.BaseView](t, rec).Center != nil {
		t.Fatalf("clear center: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/api/bases/W1N1/plan", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("plan without center: status=%d", rec.Code)
	}
}

func TestAutoAndTier(t *testing.T) {
	h := newTestAPI(t, Options{})
	rec := do(t, h, http.MethodPut, "/api/bases/W1N1/auto", `{"enabled":false}`)
	if rec.Code != http.StatusOK || decode[planner.BaseView](t, rec).AutoLayout {
		t.Fatalf("auto: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPut, "/api/bases/W1N1/tier", `{"tier":4}`)
	if rec.Code != http.StatusOK || decode[planner.BaseView](t, rec).Tier != 4 {
		t.Fatalf("tier: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPut, "/api/bases/W1N1/tier", `{"tier":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("tier 0: status=%d", rec.Code)
	}
}

func TestPlaceSite(t *testing.T) {
	h := newTestAPI(t, Options{})
	rec := do(t, h, http.MethodPost, "/api/bases/W1N1/site", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("site: status=%d body=%s", rec.Code, rec.Body.String())
	}
	v := decode[planner.SiteView](t, rec)
	if v.Size != 11 || v.Candidates == 0 || !v.Chosen.Contains(v.Anchor) {
		t.Fatalf("site=%+v", v)
	}
	rec = do(t, h, http.MethodGet, "/api/bases/W1N1", "")
	if b := decode[planner.BaseView](t, rec); b.Center == nil || *b.Center != v.Anchor {
		t.Fatalf("stored center=%v want %v", b.Center, v.Anchor)
	}
}

func TestLoopbackGuard(t *testing.T) {
	h := newTestAPI(t, Options{LoopbackOnly: true, Timeout: time.Second})
	req := httptest.NewRequest(http.MethodPut, "/api/bases/W1N1/auto", strings.NewReader(`{"enabled":false}`))
	req.RemoteAddr = "10.0.0.7:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/bases/W1N1", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reads stay open: status=%d", rec.Code)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:80":     true,
		"10.1.2.3:80":  false,
		"garbage":      false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v want %v", addr, got, want)
		}
	}
}
