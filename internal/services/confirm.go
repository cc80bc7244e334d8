package services

import (
	"context"
	"sort"
	"sync"
)

// Confirmer asks the user to approve a destructive or bulk write. count is
// the number of records the prompt is about.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string, count int) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string, count int) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string, count int) bool {
	return f(ctx, prompt, count)
}

// Always answers every prompt with ok.
func Always(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, string, int) bool { return ok })
}

// Selection is the set of transaction ids picked for a bulk delete.
type Selection struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *Selection) Add(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

func (s *Selection) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Toggle flips id in or out of the selection and reports whether it is now
// selected.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	if id == "" {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ids)
}
