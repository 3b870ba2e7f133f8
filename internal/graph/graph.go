// Package graph is the boundary to the entity/association backend that
// stores participants, appointments and check-ins. The scheduling code
// only ever submits batches and walks one hop of neighbors.
package graph

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("graph: entity not found")
	ErrInvalidBatch = errors.New("graph: invalid batch")
)

// Entity is a node in the backend graph.
type Entity struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Association is an edge between two entities. Neighbor search treats it
// as undirected.
type Association struct {
	Type string `json:"type"`
	Src  string `json:"src"`
	Dst  string `json:"dst"`
}

// Batch is submitted as a unit: either all of it is stored or none.
type Batch struct {
	Entities     []Entity      `json:"entities"`
	Associations []Association `json:"associations"`
}

// Client abstracts the backend so the service can run against the real
// API or an in-process store.
type Client interface {
	SubmitBatch(ctx context.Context, b Batch) error
	// SearchNeighbors lists entities one association away from entityID.
	// An empty entityType matches every type.
	SearchNeighbors(ctx context.Context, entityID, entityType string) ([]Entity, error)
}
