package audit

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore builds an in-memory event store.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Record(_ context.Context, events ...Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *memoryStore) Sum(_ context.Context, kind Kind) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.events {
		if e.Kind == kind {
			total += e.Amount
		}
	}
	return total, nil
}

func (s *memoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}

type memoryHistory struct {
	mu    sync.RWMutex
	draws []Draw
}

// NewMemoryHistory builds an in-memory draw history.
func NewMemoryHistory() History {
	return &memoryHistory{}
}

func (h *memoryHistory) AppendDraw(_ context.Context, d Draw) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.draws = append(h.draws, d)
	return nil
}

func (h *memoryHistory) Draws(_ context.Context) ([]Draw, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Draw, len(h.draws))
	for i, d := range h.draws {
		out[len(h.draws)-1-i] = d
	}
	return out, nil
}

func (h *memoryHistory) Reset(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.draws = nil
	return nil
}
