// Package base holds the durable per-base state: the chosen center, the
// automatic-layout switch and the deferred construction queue.
package base

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"baseplan.ai/internal/sim/geom"
	"baseplan.ai/internal/sim/structure"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNotOwner        = errors.New("not owner")
	ErrInvalidArgument = errors.New("invalid argument")
)

type State struct {
	ID     string      `json:"id"`
	Center *geom.Coord `json:"center,omitempty"`
	// NoLayout turns automatic reconciliation off for this base.
	NoLayout   bool         `json:"no_layout"`
	DelayQueue []DelayEntry `json:"delay_queue,omitempty"`
}

// Clone returns a deep copy so callers can't alias stored slices.
func (s State) Clone() State {
	out := s
	if s.Center != nil {
		c := *s.Center
		out.Center = &c
	}
	out.DelayQueue = append([]DelayEntry(nil), s.DelayQueue...)
	return out
}

// Enqueue appends e unless an equal entry is already queued.
func (s *State) Enqueue(e DelayEntry) bool {
	for _, q := range s.DelayQueue {
		if q == e {
			return false
		}
	}
	s.DelayQueue = append(s.DelayQueue, e)
	return true
}

// DelayEntry is a placement that was refused for capacity and waits for a retry.
type DelayEntry struct {
	Pos  geom.Coord
	Type structure.Type
}

// String is the persisted form "x y type".
func (e DelayEntry) String() string {
	return fmt.Sprintf("%d %d %s", e.Pos.X, e.Pos.Y, e.Type)
}

func ParseDelayEntry(s string) (DelayEntry, error) {
	f := strings.Fields(s)
	if len(f) != 3 {
		return DelayEntry{}, fmt.Errorf("delay entry %q: %w", s, ErrInvalidArgument)
	}
	x, err := strconv.Atoi(f[0])
	if err != nil {
		return DelayEntry{}, fmt.Errorf("delay entry %q: %w", s, ErrInvalidArgument)
	}
	y, err := strconv.Atoi(f[1])
	if err != nil {
		return DelayEntry{}, fmt.Errorf("delay entry %q: %w", s, ErrInvalidArgument)
	}
	t, err := structure.Parse(f[2])
	if err != nil {
		return DelayEntry{}, fmt.Errorf("delay entry %q: %w", s, ErrInvalidArgument)
	}
	return DelayEntry{Pos: geom.C(x, y), Type: t}, nil
}

func (e DelayEntry) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *DelayEntry) UnmarshalText(b []byte) error {
	v, err := ParseDelayEntry(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
