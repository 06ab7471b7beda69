// Package admin serves the planner's HTTP API.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"baseplan.ai/internal/protocol"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planner"
	"baseplan.ai/internal/sim/planning/reconcile"
)

// Planner is the slice of the planner the API drives.
type Planner interface {
	ID() string
	CurrentTick() uint64
	BasesCtx(ctx context.Context) ([]planner.BaseView, error)
	BaseCtx(ctx context.Context, id string) (planner.BaseView, error)
	SetCenterCtx(ctx context.Context, id string, c geom.Coord) error
	ClearCenterCtx(ctx context.Context, id string) error
	SetAutoLayoutCtx(ctx context.Context, id string, enabled bool) error
	SetTierCtx(ctx context.Context, id string, tier int) error
	PlanCtx(ctx context.Context, id string, tier int) (planner.PlanView, error)
	ReconcileCtx(ctx context.Context, id string) (reconcile.Report, error)
	PlaceSiteCtx(ctx context.Context, id string, size int) (planner.SiteView, error)
	RequestSnapshot(ctx context.Context) (uint64, error)
}

type Options struct {
	// LoopbackOnly rejects mutating requests that do not come from a loopback
	// address.
	LoopbackOnly bool
	// Timeout bounds each planner call; zero means 5s.
	Timeout time.Duration
}

type Server struct {
	p    Planner
	log  *log.Logger
	opts Options
}

func NewServer(p Planner, logger *log.Logger, opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Server{p: p, log: logger, opts: opts}
}

// Routes mounts the API under /api on a new router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/bases", s.listBases)
		r.Route("/bases/{id}", func(r chi.Router) {
			r.Get("/", s.getBase)
			r.Get("/plan", s.getPlan)

			r.Group(func(r chi.Router) {
				r.Use(s.guard)
				r.Put("/center", s.putCenter)
				r.Delete("/center", s.deleteCenter)
				r.Put("/auto", s.putAuto)
				r.Put("/tier", s.putTier)
				r.Post("/reconcile", s.postReconcile)
				r.Post("/site", s.postSite)
			})
		})
		r.With(s.guard).Post("/snapshot", s.postSnapshot)
	})
	return r
}

func (s *Server) guard(next http.Handler) http.Handler {
	if !s.opts.LoopbackOnly {
		return next
	}
	return loopbackOnly(next)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "planner_id": s.p.ID(), "tick": s.p.CurrentTick()})
}

func (s *Server) listBases(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	bases, err := s.p.BasesCtx(ctx)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bases)
}

func (s *Server) getBase(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	v, err := s.p.BaseCtx(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

type centerReq struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (s *Server) putCenter(w http.ResponseWriter, r *http.Request) {
	var req centerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
		respondError(w, http.StatusBadRequest, protocol.ErrBadRequest, "body must be {\"x\":int,\"y\":int}")
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	id := chi.URLParam(r, "id")
	if err := s.p.SetCenterCtx(ctx, id, geom.C(*req.X, *req.Y)); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondBase(w, r, id)
}

func (s *Server) deleteCenter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	id := chi.URLParam(r, "id")
	if err := s.p.ClearCenterCtx(ctx, id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondBase(w, r, id)
}

func (s *Server) putAuto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		respondError(w, http.StatusBadRequest, protocol.ErrBadRequest, "body must be {\"enabled\":bool}")
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	id := chi.URLParam(r, "id")
	if err := s.p.SetAutoLayoutCtx(ctx, id, *req.Enabled); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondBase(w, r, id)
}

func (s *Server) putTier(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier *int `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tier == nil {
		respondError(w, http.StatusBadRequest, protocol.ErrBadRequest, "body must be {\"tier\":int}")
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	id := chi.URLParam(r, "id")
	if err := s.p.SetTierCtx(ctx, id, *req.Tier); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondBase(w, r, id)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	tier, ok := queryInt(w, r, "tier", 0)
	if !ok {
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	id := chi.URLParam(r, "id")
	if tier == 0 {
		v, err := s.p.BaseCtx(ctx, id)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		tier = v.Tier
	}
	plan, err := s.p.PlanCtx(ctx, id, tier)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) postReconcile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	rep, err := s.p.ReconcileCtx(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (s *Server) postSite(w http.ResponseWriter, r *http.Request) {
	size, ok := queryInt(w, r, "size", 0)
	if !ok {
		return
	}
	ctx, cancel := s.ctx(r)
	defer cancel()
	v, err := s.p.PlaceSiteCtx(ctx, chi.URLParam(r, "id"), size)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) postSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	tick, err := s.p.RequestSnapshot(ctx)
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "tick": tick, "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "tick": tick})
}

func (s *Server) respondBase(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := s.ctx(r)
	defer cancel()
	v, err := s.p.BaseCtx(ctx, id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (s *Server) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.Timeout)
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	code := protocol.CodeFor(err)
	status := http.StatusInternalServerError
	switch code {
	case protocol.ErrNotFound:
		status = http.StatusNotFound
	case protocol.ErrNotOwner:
		status = http.StatusConflict
	case protocol.ErrInvalidArgs:
		status = http.StatusBadRequest
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
	}
	if status == http.StatusInternalServerError || status == http.StatusGatewayTimeout {
		s.logf("admin: %v", err)
	}
	respondError(w, status, code, err.Error())
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logf("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, protocol.ErrBadRequest, key+" must be an integer")
		return 0, false
	}
	return n, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("admin: encode response: %v", err)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Code: code, Message: message})
}

func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			respondError(w, http.StatusForbidden, protocol.ErrBadRequest, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
