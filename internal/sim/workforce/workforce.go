// Package workforce is a request board for worker roles. Requests are
// fire-and-forget and deduplicated per base and role.
package workforce

import (
	"sort"
	"sync"
)

type Request struct {
	BaseID string `json:"base_id"`
	Role   string `json:"role"`
	Seq    uint64 `json:"seq"`
}

type key struct{ base, role string }

type Board struct {
	mu     sync.Mutex
	active map[key]Request
	seq    uint64
}

func NewBoard() *Board {
	return &Board{active: map[key]Request{}}
}

// RequestRole records that baseID wants a worker of role. A second request
// while the first is still active is ignored.
func (b *Board) RequestRole(baseID, role string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key{baseID, role}
	if _, ok := b.active[k]; ok {
		return
	}
	b.seq++
	b.active[k] = Request{BaseID: baseID, Role: role, Seq: b.seq}
}

func (b *Board) Active(baseID, role string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.active[key{baseID, role}]
	return ok
}

// Release ends a request, typically once the work is done.
func (b *Board) Release(baseID, role string) {
	b.mu.Lock()
	delete(b.active, key{baseID, role})
	b.mu.Unlock()
}

// Pending lists active requests in the order they were made.
func (b *Board) Pending() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, 0, len(b.active))
	for _, r := range b.active {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
