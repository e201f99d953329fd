package wager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pesocoin/colorgame/internal/game"
)

// Book holds the open wagers of the current round. Listings are ordered newest
// first.
type Book interface {
	Insert(ctx context.Context, w Wager) error
	Delete(ctx context.Context, id string) (Wager, error)
	FindByAccount(ctx context.Context, account string) ([]Wager, error)
	All(ctx context.Context) ([]Wager, error)
	Clear(ctx context.Context) error
	// Drain returns every wager and empties the book in one step.
	Drain(ctx context.Context) ([]Wager, error)
}

type entry struct {
	wager Wager
	seq   uint64
}

type memoryBook struct {
	mu        sync.RWMutex
	seq       uint64
	byID      map[string]entry
	byAccount map[string]map[string]struct{}
}

// NewMemoryBook constructs an in-memory wager book.
func NewMemoryBook() Book {
	return &memoryBook{
		byID:      make(map[string]entry),
		byAccount: make(map[string]map[string]struct{}),
	}
}

func (b *memoryBook) Insert(_ context.Context, w Wager) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.byID[w.ID]; exists {
		return fmt.Errorf("wager %s already exists", w.ID)
	}
	b.seq++
	b.byID[w.ID] = entry{wager: w, seq: b.seq}
	ids, ok := b.byAccount[w.Account]
	if !ok {
		ids = make(map[string]struct{})
		b.byAccount[w.Account] = ids
	}
	ids[w.ID] = struct{}{}
	return nil
}

func (b *memoryBook) Delete(_ context.Context, id string) (Wager, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.byID[id]
	if !ok {
		return Wager{}, fmt.Errorf("wager %s: %w", id, game.ErrNotFound)
	}
	delete(b.byID, id)
	if ids := b.byAccount[e.wager.Account]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(b.byAccount, e.wager.Account)
		}
	}
	return e.wager, nil
}

func (b *memoryBook) FindByAccount(_ context.Context, account string) ([]Wager, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := make([]entry, 0, len(b.byAccount[account]))
	for id := range b.byAccount[account] {
		entries = append(entries, b.byID[id])
	}
	return newestFirst(entries), nil
}

func (b *memoryBook) All(_ context.Context) ([]Wager, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return newestFirst(b.snapshot()), nil
}

func (b *memoryBook) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
	return nil
}

func (b *memoryBook) Drain(_ context.Context) ([]Wager, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.snapshot()
	b.reset()
	return newestFirst(entries), nil
}

func (b *memoryBook) snapshot() []entry {
	entries := make([]entry, 0, len(b.byID))
	for _, e := range b.byID {
		entries = append(entries, e)
	}
	return entries
}

func (b *memoryBook) reset() {
	b.byID = make(map[string]entry)
	b.byAccount = make(map[string]map[string]struct{})
}

func newestFirst(entries []entry) []Wager {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].wager.PlacedAt.Equal(entries[j].wager.PlacedAt) {
			return entries[i].wager.PlacedAt.After(entries[j].wager.PlacedAt)
		}
		return entries[i].seq > entries[j].seq
	})
	out := make([]Wager, len(entries))
	for i, e := range entries {
		out[i] = e.wager
	}
	return out
}
