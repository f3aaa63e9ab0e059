package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a node id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an optimistic version check fails.
	ErrConflict = errors.New("version conflict")
)

// Node is the storage envelope for every persisted entity. The engine
// marshals domain structs into Payload and mirrors the fields it queries on
// into Index; backends only ever see this envelope.
type Node struct {
	ID        string            `json:"id"`
	Scope     string            `json:"scope"`
	Kind      string            `json:"kind"`
	Version   int64             `json:"version"`
	Index     map[string]string `json:"index,omitempty"`
	Payload   []byte            `json:"payload"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
	CreatedBy string            `json:"created_by"`
	UpdatedBy string            `json:"updated_by"`
}

// Filter matches nodes whose Index contains every listed key/value pair.
type Filter map[string]string

// Matches reports whether the node's index satisfies the filter.
func (f Filter) Matches(n Node) bool {
	for k, v := range f {
		if n.Index[k] != v {
			return false
		}
	}
	return true
}

// Store is the persistence collaborator the engine is written against.
// Backends must be substitutable without the engine noticing.
type Store interface {
	// Get returns the node with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (Node, error)
	// Put upserts a node. A zero Version inserts and fails with ErrConflict
	// if the id already exists; a non-zero Version updates and fails with
	// ErrConflict unless it matches the stored version. The returned node
	// carries the incremented version.
	Put(ctx context.Context, n Node) (Node, error)
	// Remove deletes by id. Removing an absent id is not an error.
	Remove(ctx context.Context, id string) error
	// FindByKind returns all nodes in a scope with the given kind whose
	// index matches the filter. Order is unspecified.
	FindByKind(ctx context.Context, scope, kind string, filter Filter) ([]Node, error)
}
