package site

import "baseplan.ai/internal/sim/geom"

// DistanceOracle measures travel between two cells. ok is false when there is
// no route.
type DistanceOracle interface {
	PathLength(from, to geom.Coord) (steps int, ok bool)
}

// Anchors are the two fixed points a base wants to be close to.
type Anchors struct {
	Governance *geom.Coord
	Resource   *geom.Coord
}

// Resolve picks the candidate with the smallest summed path length to both
// anchors. Ties keep the earliest candidate. Candidates that cannot reach an
// anchor are skipped.
func Resolve(cands []Candidate, anchors Anchors, oracle DistanceOracle) (Candidate, bool) {
	if len(cands) == 0 || anchors.Governance == nil || anchors.Resource == nil || oracle == nil {
		return Candidate{}, false
	}

	var (
		best     Candidate
		bestDist = -1
	)
	for _, c := range cands {
		from := c.AnchorCell()
		dg, ok := oracle.PathLength(from, *anchors.Governance)
		if !ok {
			continue
		}
		dr, ok := oracle.PathLength(from, *anchors.Resource)
		if !ok {
			continue
		}
		if d := dg + dr; bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist >= 0
}
