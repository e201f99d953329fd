package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pesocoin/colorgame/internal/game"
)

// Options configure who counts as privileged.
type Options struct {
	AdminRole string
	OwnerID   string
	SystemID  string
}

// Service manages the member registry and role checks.
type Service struct {
	repo Repository
	opts Options
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, opts Options) *Service {
	if opts.AdminRole == "" {
		opts.AdminRole = RoleAdmin
	}
	return &Service{repo: repo, opts: opts, now: time.Now}
}

// Register records the profile asserted by the chat adapter and returns the
// stored member. Roles are normalized to lower case; the configured owner
// always carries the owner role.
func (s *Service) Register(ctx context.Context, p Profile) (Member, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return Member{}, errors.New("member id is required")
	}
	if id == s.opts.SystemID {
		return Member{}, fmt.Errorf("system identity cannot register: %w", game.ErrUnauthorized)
	}
	roles := make([]string, 0, len(p.Roles)+1)
	seen := make(map[string]bool, len(p.Roles)+1)
	for _, r := range p.Roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] || r == RoleOwner {
			continue
		}
		seen[r] = true
		roles = append(roles, r)
	}
	if s.opts.OwnerID != "" && id == s.opts.OwnerID {
		roles = append(roles, RoleOwner)
	}
	return s.repo.Upsert(ctx, Member{ID: id, Name: p.Name, Roles: roles, LastSeen: s.now().UTC()})
}

// Get returns a member by id.
func (s *Service) Get(ctx context.Context, id string) (Member, error) {
	return s.repo.FindByID(ctx, id)
}

// IsPrivileged reports whether the member may run admin commands or approve
// requests. Unknown members are not privileged.
func (s *Service) IsPrivileged(ctx context.Context, id string) (bool, error) {
	if id == "" || id == s.opts.SystemID {
		return false, nil
	}
	if s.IsOwner(id) {
		return true, nil
	}
	m, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, game.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.HasRole(s.opts.AdminRole) || m.HasRole(RoleOwner), nil
}

// IsOwner reports whether id is the configured owner.
func (s *Service) IsOwner(id string) bool {
	return s.opts.OwnerID != "" && id == s.opts.OwnerID
}

// Revoke bumps the token version so previously issued tokens stop working.
func (s *Service) Revoke(ctx context.Context, id string) error {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.UpdateTokenVersion(ctx, m.ID, m.TokenVersion+1)
}
