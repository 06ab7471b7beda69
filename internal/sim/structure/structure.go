// Package structure names the buildable structure types and the outcomes of a
// placement attempt.
package structure

import (
	"fmt"
	"strings"
)

// Type is a closed set of buildable structure kinds. The declaration order is
// the canonical walk order used when reconciling a plan.
type Type uint8

const (
	Invalid Type = iota
	Spawn
	Extension
	Tower
	Storage
	Link
	Container
	Terminal
	Extractor
	Lab
	Factory
	Observer
	PowerSpawn
	Nuker
	Road
	Rampart
	Wall

	numTypes
)

var names = [numTypes]string{
	Invalid:    "",
	Spawn:      "spawn",
	Extension:  "extension",
	Tower:      "tower",
	Storage:    "storage",
	Link:       "link",
	Container:  "container",
	Terminal:   "terminal",
	Extractor:  "extractor",
	Lab:        "lab",
	Factory:    "factory",
	Observer:   "observer",
	PowerSpawn: "powerSpawn",
	Nuker:      "nuker",
	Road:       "road",
	Rampart:    "rampart",
	Wall:       "constructedWall",
}

var byName = func() map[string]Type {
	m := make(map[string]Type, numTypes)
	for i := Type(1); i < numTypes; i++ {
		m[names[i]] = i
	}
	return m
}()

// All returns every valid type in canonical order.
func All() []Type {
	out := make([]Type, 0, numTypes-1)
	for i := Type(1); i < numTypes; i++ {
		out = append(out, i)
	}
	return out
}

func (t Type) Valid() bool { return t > Invalid && t < numTypes }

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return names[t]
}

// Parse accepts the wire name of a type. Matching is exact except for
// surrounding whitespace.
func Parse(s string) (Type, error) {
	t, ok := byName[strings.TrimSpace(s)]
	if !ok {
		return Invalid, fmt.Errorf("unknown structure type %q", s)
	}
	return t, nil
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid structure type %d", uint8(t))
	}
	return []byte(names[t]), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// CanShare reports whether a structure of type a may occupy the same cell as
// one of type b. Ramparts cover anything; everything else needs the cell alone.
func CanShare(a, b Type) bool {
	return a == Rampart || b == Rampart
}

// Walkable types never block movement.
func Walkable(t Type) bool {
	switch t {
	case Road, Container, Rampart:
		return true
	}
	return false
}
