// Package memory is an in-process store backend. Documents keep their
// insertion order; replacing a document keeps its position.
package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"duoledger/internal/store"
)

type collection struct {
	docs  map[string]store.Fields
	order []string
}

type Store struct {
	mu     sync.RWMutex
	cols   map[string]*collection
	closed bool

	hub *store.Hub
}

var _ store.Store = (*Store)(nil)

func New(logger *slog.Logger) *Store {
	s := &Store{cols: make(map[string]*collection)}
	s.hub = store.NewHub(s.load, logger)
	return s
}

// Hub exposes the change hub so a relay can be attached.
func (s *Store) Hub() *store.Hub { return s.hub }

func (s *Store) Subscribe(ctx context.Context, col string) (*store.Subscription, error) {
	return s.hub.Subscribe(ctx, col)
}

func (s *Store) Insert(ctx context.Context, col string, fields store.Fields) (string, error) {
	id := store.NewID()
	if err := s.apply(ctx, []store.Op{{Kind: store.OpSet, Collection: col, ID: id, Fields: fields}}, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SetDoc(ctx context.Context, col, id string, fields store.Fields) error {
	return s.apply(ctx, []store.Op{{Kind: store.OpSet, Collection: col, ID: id, Fields: fields}}, false)
}

func (s *Store) Delete(ctx context.Context, col, id string) error {
	return s.apply(ctx, []store.Op{{Kind: store.OpDelete, Collection: col, ID: id}}, true)
}

func (s *Store) Commit(ctx context.Context, ops []store.Op) error {
	return s.apply(ctx, ops, false)
}

// apply runs ops under one lock. strictDelete turns a missing id into ErrNotFound.
func (s *Store) apply(ctx context.Context, ops []store.Op, strictDelete bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.ErrClosed
	}
	if strictDelete {
		for _, op := range ops {
			if op.Kind != store.OpDelete {
				continue
			}
			c := s.cols[op.Collection]
			if c == nil || c.docs[op.ID] == nil {
				s.mu.Unlock()
				return store.ErrNotFound
			}
		}
	}
	for _, op := range ops {
		c := s.col(op.Collection)
		switch op.Kind {
		case store.OpSet:
			if _, exists := c.docs[op.ID]; !exists {
				c.order = append(c.order, op.ID)
			}
			f := op.Fields.Clone()
			if f == nil {
				f = store.Fields{}
			}
			c.docs[op.ID] = f
		case store.OpDelete:
			if _, exists := c.docs[op.ID]; exists {
				delete(c.docs, op.ID)
				c.order = slices.DeleteFunc(c.order, func(id string) bool { return id == op.ID })
			}
		}
	}
	s.mu.Unlock()

	s.hub.Notify(ctx, store.Collections(ops)...)
	return nil
}

func (s *Store) col(name string) *collection {
	c, ok := s.cols[name]
	if !ok {
		c = &collection{docs: make(map[string]store.Fields)}
		s.cols[name] = c
	}
	return c
}

func (s *Store) load(_ context.Context, name string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	c, ok := s.cols[name]
	if !ok {
		return []store.Document{}, nil
	}
	docs := make([]store.Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, store.Document{ID: id, Fields: c.docs[id].Clone()})
	}
	return docs, nil
}

// Len reports the number of documents in a collection.
func (s *Store) Len(col string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cols[col]; ok {
		return len(c.order)
	}
	return 0
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}
