package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/pesocoin/colorgame/internal/game"
)

type memoryRepository struct {
	mu      sync.RWMutex
	members map[string]Member
}

// NewMemoryRepository builds an in-memory member store.
func NewMemoryRepository() Repository {
	return &memoryRepository{members: make(map[string]Member)}
}

func (r *memoryRepository) Upsert(_ context.Context, member Member) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.members[member.ID]
	if ok {
		existing.Name = member.Name
		existing.Roles = append([]string(nil), member.Roles...)
		existing.LastSeen = member.LastSeen
		r.members[member.ID] = existing
		return existing, nil
	}
	member.Roles = append([]string(nil), member.Roles...)
	member.TokenVersion = 0
	member.CreatedAt = member.LastSeen
	r.members[member.ID] = member
	return member, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return Member{}, fmt.Errorf("member %s: %w", id, game.ErrNotFound)
	}
	return m, nil
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return fmt.Errorf("member %s: %w", id, game.ErrNotFound)
	}
	m.TokenVersion = version
	r.members[id] = m
	return nil
}
