// Package movement answers path queries over a terrain grid.
package movement

import (
	"container/heap"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/world/terrain"
)

// Costs weight a step onto each terrain class. Walls are never entered.
type Costs struct {
	Plain int
	Swamp int
}

func DefaultCosts() Costs { return Costs{Plain: 2, Swamp: 10} }

// Oracle finds cheapest 8-neighbour paths. Blocked cells (for example
// impassable structures) are avoided except as the destination.
type Oracle struct {
	grid    terrain.Query
	costs   Costs
	blocked func(geom.Coord) bool
}

func NewOracle(grid terrain.Query, costs Costs, blocked func(geom.Coord) bool) *Oracle {
	if costs.Plain <= 0 {
		costs.Plain = 1
	}
	if costs.Swamp <= 0 {
		costs.Swamp = costs.Plain
	}
	return &Oracle{grid: grid, costs: costs, blocked: blocked}
}

// PathLength is the number of steps on the cheapest path from -> to.
func (o *Oracle) PathLength(from, to geom.Coord) (int, bool) {
	p, ok := o.Path(from, to)
	if !ok {
		return 0, false
	}
	return len(p), true
}

// Path returns the cells walked from -> to, excluding from and including to.
// Ties between equal-cost routes break on the fixed neighbour order, so the
// result is reproducible.
func (o *Oracle) Path(from, to geom.Coord) ([]geom.Coord, bool) {
	size := o.grid.Size()
	if !from.In(size) || !to.In(size) {
		return nil, false
	}
	if from == to {
		return []geom.Coord{}, true
	}
	if o.grid.Class(to.X, to.Y) == terrain.Wall {
		return nil, false
	}

	idx := func(c geom.Coord) int { return c.Y*size + c.X }
	dist := make([]int, size*size)
	prev := make([]int, size*size)
	for i := range dist {
		dist[i] = -1
		prev[i] = -1
	}

	var seq int
	pq := &queue{}
	dist[idx(from)] = 0
	heap.Push(pq, item{c: from, cost: 0, seq: seq})

	for pq.Len() > 0 {
		it := heap.Pop(pq).(item)
		if it.cost != dist[idx(it.c)] {
			continue
		}
		if it.c == to {
			break
		}
		for _, d := range geom.Neighbors8 {
			n := it.c.Add(d)
			if !n.In(size) {
				continue
			}
			step, ok := o.stepCost(n, to)
			if !ok {
				continue
			}
			nc := it.cost + step
			ni := idx(n)
			if dist[ni] >= 0 && dist[ni] <= nc {
				continue
			}
			dist[ni] = nc
			prev[ni] = idx(it.c)
			seq++
			heap.Push(pq, item{c: n, cost: nc, seq: seq})
		}
	}

	if dist[idx(to)] < 0 {
		return nil, false
	}
	var rev []geom.Coord
	for i := idx(to); i != idx(from); i = prev[i] {
		rev = append(rev, geom.C(i%size, i/size))
	}
	out := make([]geom.Coord, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out, true
}

func (o *Oracle) stepCost(c, dest geom.Coord) (int, bool) {
	switch o.grid.Class(c.X, c.Y) {
	case terrain.Wall:
		return 0, false
	case terrain.Swamp:
		if c != dest && o.blocked != nil && o.blocked(c) {
			return 0, false
		}
		return o.costs.Swamp, true
	default:
		if c != dest && o.blocked != nil && o.blocked(c) {
			return 0, false
		}
		return o.costs.Plain, true
	}
}

type item struct {
	c    geom.Coord
	cost int
	seq  int
}

type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int)  { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
