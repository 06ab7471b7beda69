// Package links decides what each energy link does on a tick. A link's job is
// a closed Role, and Decide switches over it exhaustively.
package links

import (
	"fmt"
	"sort"
)

type Role uint8

const (
	Unassigned Role = iota
	Source
	Center
	Upgrade
)

func (r Role) String() string {
	switch r {
	case Unassigned:
		return "unassigned"
	case Source:
		return "source"
	case Center:
		return "center"
	case Upgrade:
		return "upgrade"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "source":
		return Source, nil
	case "center":
		return Center, nil
	case "upgrade":
		return Upgrade, nil
	case "", "unassigned":
		return Unassigned, nil
	}
	return Unassigned, fmt.Errorf("unknown link role %q", s)
}

// Registry holds the role of every link in a room. There is at most one
// center and one upgrade link.
type Registry struct {
	roles   map[string]Role
	center  string
	upgrade string
}

func NewRegistry() *Registry {
	return &Registry{roles: map[string]Role{}}
}

func (r *Registry) Assign(id string, role Role) {
	r.Forget(id)
	switch role {
	case Unassigned:
		return
	case Center:
		if r.center != "" {
			delete(r.roles, r.center)
		}
		r.center = id
	case Upgrade:
		if r.upgrade != "" {
			delete(r.roles, r.upgrade)
		}
		r.upgrade = id
	}
	r.roles[id] = role
}

func (r *Registry) Forget(id string) {
	delete(r.roles, id)
	if r.center == id {
		r.center = ""
	}
	if r.upgrade == id {
		r.upgrade = ""
	}
}

func (r *Registry) Role(id string) Role { return r.roles[id] }

func (r *Registry) Center() (string, bool)  { return r.center, r.center != "" }
func (r *Registry) Upgrade() (string, bool) { return r.upgrade, r.upgrade != "" }

// IDs lists registered links in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.roles))
	for id := range r.roles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Prune forgets links the view no longer knows about.
func (r *Registry) Prune(v View) []string {
	var gone []string
	for _, id := range r.IDs() {
		if _, ok := v.Link(id); !ok {
			r.Forget(id)
			gone = append(gone, id)
		}
	}
	return gone
}

type Link struct {
	ID       string
	Energy   int
	Cooldown int
}

// View is the room state a decision reads.
type View interface {
	Link(id string) (Link, bool)
	// TransferPending reports an unfinished transfer request from id.
	TransferPending(id string) bool
}

type ActionKind uint8

const (
	Idle ActionKind = iota
	SendTo
	RequestTransfer
)

func (k ActionKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case SendTo:
		return "send"
	case RequestTransfer:
		return "request_transfer"
	default:
		return fmt.Sprintf("ActionKind(%d)", uint8(k))
	}
}

type Action struct {
	Kind   ActionKind
	Target string
	Amount int
}

// Decide picks the action for l. Links with no energy or on cooldown idle.
func Decide(l Link, reg *Registry, v View) Action {
	if l.Energy <= 0 || l.Cooldown > 0 {
		return Action{Kind: Idle}
	}
	switch reg.Role(l.ID) {
	case Source:
		if id, ok := reg.Upgrade(); ok {
			if up, ok := v.Link(id); ok && up.Energy == 0 {
				return Action{Kind: SendTo, Target: id, Amount: l.Energy}
			}
		}
		if id, ok := reg.Center(); ok {
			if _, ok := v.Link(id); ok {
				return Action{Kind: SendTo, Target: id, Amount: l.Energy}
			}
		}
		return Action{Kind: Idle}
	case Center:
		if v.TransferPending(l.ID) {
			return Action{Kind: Idle}
		}
		return Action{Kind: RequestTransfer, Amount: l.Energy}
	case Upgrade, Unassigned:
		return Action{Kind: Idle}
	default:
		return Action{Kind: Idle}
	}
}
