package base

import (
	"fmt"
	"sort"
	"sync"
)

// Store persists base state. Load returns ErrNotFound for unknown ids.
type Store interface {
	Load(id string) (State, error)
	Save(s State) error
	List() ([]string, error)
}

type MemoryStore struct {
	mu    sync.Mutex
	bases map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bases: map[string]State{}}
}

func (m *MemoryStore) Load(id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.bases[id]
	if !ok {
		return State{}, fmt.Errorf("base %q: %w", id, ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(s State) error {
	if s.ID == "" {
		return fmt.Errorf("base id: %w", ErrInvalidArgument)
	}
	m.mu.Lock()
	m.bases[s.ID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.bases))
	for id := range m.bases {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
