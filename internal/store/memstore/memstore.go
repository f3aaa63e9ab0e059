// Package memstore is the in-memory store backend, used by tests and
// embedders that do not need durability.
package memstore

import (
	"context"
	"sync"

	"orgline/internal/store"
)

type Store struct {
	mu    sync.RWMutex
	nodes map[string]store.Node
}

func New() *Store {
	return &Store{nodes: map[string]store.Node{}}
}

func (s *Store) Get(ctx context.Context, id string) (store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return store.Node{}, store.ErrNotFound
	}
	return clone(n), nil
}

func (s *Store) Put(ctx context.Context, n store.Node) (store.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.nodes[n.ID]
	if n.Version == 0 {
		if ok {
			return store.Node{}, store.ErrConflict
		}
	} else {
		if !ok {
			return store.Node{}, store.ErrNotFound
		}
		if existing.Version != n.Version {
			return store.Node{}, store.ErrConflict
		}
	}
	n.Version++
	s.nodes[n.ID] = clone(n)
	return n, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	return nil
}

func (s *Store) FindByKind(ctx context.Context, scope, kind string, filter store.Filter) ([]store.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []store.Node
	for _, n := range s.nodes {
		if n.Scope != scope || n.Kind != kind {
			continue
		}
		if !filter.Matches(n) {
			continue
		}
		res = append(res, clone(n))
	}
	return res, nil
}

func clone(n store.Node) store.Node {
	if n.Index != nil {
		idx := make(map[string]string, len(n.Index))
		for k, v := range n.Index {
			idx[k] = v
		}
		n.Index = idx
	}
	if n.Payload != nil {
		p := make([]byte, len(n.Payload))
		copy(p, n.Payload)
		n.Payload = p
	}
	return n
}
