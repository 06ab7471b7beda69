package reconcile

import (
	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

type Report struct {
	RunID  string `json:"run_id"`
	BaseID string `json:"base_id"`
	Tick   uint64 `json:"tick"`
	Tier   int    `json:"tier"`

	Placed    int `json:"placed"`
	Satisfied int `json:"satisfied"`
	Deferred  int `json:"deferred"`
	Skipped   int `json:"skipped"`
	Blocked   int `json:"blocked"`

	Failures  []Failure `json:"failures,omitempty"`
	Destroyed []string  `json:"destroyed,omitempty"`

	BuilderRequested bool `json:"builder_requested"`
}

// Failure is a placement the world refused with an outcome this package does
// not classify.
type Failure struct {
	Pos  geom.Coord     `json:"pos"`
	Type structure.Type `json:"type"`
	Code int            `json:"code"`
}

// Issued is true when the run changed anything in the world.
func (r Report) Issued() bool {
	return r.Placed > 0 || len(r.Destroyed) > 0
}

type RetryReport struct {
	BaseID    string `json:"base_id"`
	Attempted int    `json:"attempted"`
	Placed    int    `json:"placed"`
	Dropped   int    `json:"dropped"`
	Remaining int    `json:"remaining"`
}
