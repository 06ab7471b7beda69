package structure

import "fmt"

// Outcome is the result of asking the world to place a construction site.
// Values outside the named range are raw codes the world returned that this
// package does not know how to classify.
type Outcome int

const (
	OK Outcome = iota
	AlreadySatisfied
	CapacityExceeded
	TierInsufficient
	InvalidTarget
)

func (o Outcome) Known() bool { return o >= OK && o <= InvalidTarget }

func (o Outcome) String() string {
	switch o {
	case OK:
		return "OK"
	case AlreadySatisfied:
		return "ALREADY_SATISFIED"
	case CapacityExceeded:
		return "CAPACITY_EXCEEDED"
	case TierInsufficient:
		return "TIER_INSUFFICIENT"
	case InvalidTarget:
		return "INVALID_TARGET"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(o))
	}
}
