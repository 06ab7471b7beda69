package planner

import (
	"context"

	"baseplan.ai/internal/protocol"
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/planning/reconcile"
)

// The methods below are the goroutine-safe surface used by transports. Each
// hops onto the planner loop through Call.

func (p *Planner) BasesCtx(ctx context.Context) ([]BaseView, error) {
	var out []BaseView
	err := p.Call(ctx, func() (err error) {
		out, err = p.Bases()
		return err
	})
	return out, err
}

func (p *Planner) BaseCtx(ctx context.Context, id string) (BaseView, error) {
	var out BaseView
	err := p.Call(ctx, func() (err error) {
		out, err = p.Base(id)
		return err
	})
	return out, err
}

func (p *Planner) SetCenterCtx(ctx context.Context, id string, c geom.Coord) error {
	return p.Call(ctx, func() error { return p.SetBaseCenter(id, c) })
}

func (p *Planner) ClearCenterCtx(ctx context.Context, id string) error {
	return p.Call(ctx, func() error { return p.ClearBaseCenter(id) })
}

func (p *Planner) SetAutoLayoutCtx(ctx context.Context, id string, enabled bool) error {
	return p.Call(ctx, func() error { return p.SetAutoLayout(id, enabled) })
}

func (p *Planner) SetTierCtx(ctx context.Context, id string, tier int) error {
	return p.Call(ctx, func() error { return p.SetTier(id, tier) })
}

func (p *Planner) PlanCtx(ctx context.Context, id string, tier int) (PlanView, error) {
	var out PlanView
	err := p.Call(ctx, func() (err error) {
		out, err = p.PlanView(id, tier)
		return err
	})
	return out, err
}

func (p *Planner) ReconcileCtx(ctx context.Context, id string) (reconcile.Report, error) {
	var out reconcile.Report
	err := p.Call(ctx, func() (err error) {
		out, err = p.Reconcile(id)
		return err
	})
	return out, err
}

func (p *Planner) PlaceSiteCtx(ctx context.Context, id string, size int) (SiteView, error) {
	var out SiteView
	err := p.Call(ctx, func() (err error) {
		out, err = p.SiteView(id, size)
		return err
	})
	return out, err
}

// Welcome describes this planner to a newly connected client.
func (p *Planner) Welcome(sessionID string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlannerID:       p.id,
		SessionID:       sessionID,
		Tick:            p.tick.Load(),
		Params: protocol.PlannerParams{
			TickRateHz:          p.tune.TickRateHz,
			ReconcileEveryTicks: p.tune.ReconcileEveryTicks,
			GridSize:            p.tune.GridSize,
			BaseSize:            p.tune.BaseSize,
			MaxTier:             p.tune.MaxTier,
		},
		Catalogs: protocol.CatalogDigests{
			LayoutDigest:     p.cats.Layout.Digest,
			StructuresDigest: p.cats.Structures.Digest,
			TuningDigest:     p.tuningDigest,
		},
	}
}
