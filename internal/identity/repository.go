package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesocoin/colorgame/internal/game"
)

// Repository persists members.
type Repository interface {
	Upsert(ctx context.Context, member Member) (Member, error)
	FindByID(ctx context.Context, id string) (Member, error)
	UpdateTokenVersion(ctx context.Context, id string, version int) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed member repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts a member or refreshes its name, roles and last_seen. The
// token version and creation time of an existing member are kept.
func (r *PostgresRepository) Upsert(ctx context.Context, member Member) (Member, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO members (id, name, roles, token_version, created_at, last_seen)
        VALUES ($1, $2, $3, 0, $4, $4)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, roles = EXCLUDED.roles, last_seen = EXCLUDED.last_seen
        RETURNING id, name, roles, token_version, created_at, last_seen`,
		member.ID, member.Name, member.Roles, member.LastSeen.UTC())
	return scanMember(row)
}

// FindByID fetches a member by chat identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Member, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, roles, token_version, created_at, last_seen FROM members WHERE id = $1`, id)
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, fmt.Errorf("member %s: %w", id, game.ErrNotFound)
	}
	return m, err
}

// UpdateTokenVersion stores a new token version, invalidating older tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE members SET token_version = $1 WHERE id = $2`, version, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("member %s: %w", id, game.ErrNotFound)
	}
	return nil
}

func scanMember(row pgx.Row) (Member, error) {
	var (
		m                   Member
		createdAt, lastSeen time.Time
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Roles, &m.TokenVersion, &createdAt, &lastSeen); err != nil {
		return Member{}, err
	}
	m.CreatedAt = createdAt.UTC()
	m.LastSeen = lastSeen.UTC()
	return m, nil
}
