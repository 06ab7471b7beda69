package protocol

import "baseplan.ai/internal/sim/planning/reconcile"

// HELLO (client -> server). An empty Bases list subscribes to every base.
type HelloMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ClientName      string   `json:"client_name"`
	Bases           []string `json:"bases,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	PlannerID       string         `json:"planner_id"`
	SessionID       string         `json:"session_id"`
	Tick            uint64         `json:"tick"`
	Params          PlannerParams  `json:"params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type PlannerParams struct {
	TickRateHz          int `json:"tick_rate_hz"`
	ReconcileEveryTicks int `json:"reconcile_every_ticks"`
	GridSize            int `json:"grid_size"`
	BaseSize            int `json:"base_size"`
	MaxTier             int `json:"max_tier"`
}

type CatalogDigests struct {
	LayoutDigest     string `json:"layout_digest"`
	StructuresDigest string `json:"structures_digest"`
	TuningDigest     string `json:"tuning_digest,omitempty"`
}

// REPORT (server -> client): one reconcile run.
type ReportMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Cursor          uint64           `json:"cursor"`
	Report          reconcile.Report `json:"report"`
}

// RETRY (server -> client): one delay queue pass.
type RetryMsg struct {
	Type            string                `json:"type"`
	ProtocolVersion string                `json:"protocol_version"`
	Tick            uint64                `json:"tick"`
	Retry           reconcile.RetryReport `json:"retry"`
}

func NewReportMsg(cursor uint64, r reconcile.Report) ReportMsg {
	return ReportMsg{Type: TypeReport, ProtocolVersion: Version, Cursor: cursor, Report: r}
}

func NewRetryMsg(tick uint64, r reconcile.RetryReport) RetryMsg {
	return RetryMsg{Type: TypeRetry, ProtocolVersion: Version, Tick: tick, Retry: r}
}
