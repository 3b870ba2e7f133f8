package graph

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
)

// Memory is an in-process Client. It backs tests and -debug runs.
type Memory struct {
	mu        sync.RWMutex
	entities  map[string]Entity
	neighbors map[string]map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		entities:  make(map[string]Entity),
		neighbors: make(map[string]map[string]struct{}),
	}
}

func (m *Memory) SubmitBatch(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check everything before touching the store.
	incoming := make(map[string]struct{}, len(b.Entities))
	for _, e := range b.Entities {
		if e.ID == "" || e.Type == "" {
			return fmt.Errorf("%w: entity needs id and type", ErrInvalidBatch)
		}
		incoming[e.ID] = struct{}{}
	}
	known := func(id string) bool {
		if _, ok := incoming[id]; ok {
			return true
		}
		_, ok := m.entities[id]
		return ok
	}
	for _, a := range b.Associations {
		if !known(a.Src) {
			return fmt.Errorf("association %q: %w: %s", a.Type, ErrNotFound, a.Src)
		}
		if !known(a.Dst) {
			return fmt.Errorf("association %q: %w: %s", a.Type, ErrNotFound, a.Dst)
		}
	}

	for _, e := range b.Entities {
		e.Properties = maps.Clone(e.Properties)
		m.entities[e.ID] = e
	}
	for _, a := range b.Associations {
		m.link(a.Src, a.Dst)
		m.link(a.Dst, a.Src)
	}
	return nil
}

func (m *Memory) link(from, to string) {
	set, ok := m.neighbors[from]
	if !ok {
		set = make(map[string]struct{})
		m.neighbors[from] = set
	}
	set[to] = struct{}{}
}

func (m *Memory) SearchNeighbors(ctx context.Context, entityID, entityType string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.entities[entityID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entityID)
	}

	out := make([]Entity, 0, len(m.neighbors[entityID]))
	for id := range m.neighbors[entityID] {
		e := m.entities[id]
		if entityType != "" && e.Type != entityType {
			continue
		}
		e.Properties = maps.Clone(e.Properties)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
