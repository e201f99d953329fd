package wager

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesocoin/colorgame/internal/game"
)

// PostgresBook stores open wagers in the wagers table.
type PostgresBook struct {
	db *pgxpool.Pool
}

// NewPostgresBook builds a wager book backed by PostgreSQL.
func NewPostgresBook(db *pgxpool.Pool) *PostgresBook {
	return &PostgresBook{db: db}
}

const wagerColumns = `id, account_id, color, amount, placed_at`

// Insert stores a wager.
func (b *PostgresBook) Insert(ctx context.Context, w Wager) error {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(ctx, `INSERT INTO wagers (id, account_id, color, amount, placed_at)
        VALUES ($1, $2, $3, $4, $5)`, id, w.Account, string(w.Color), w.Amount, w.PlacedAt.UTC())
	return err
}

// Delete removes a wager and returns it.
func (b *PostgresBook) Delete(ctx context.Context, id string) (Wager, error) {
	wagerID, err := uuid.Parse(id)
	if err != nil {
		return Wager{}, fmt.Errorf("wager %s: %w", id, game.ErrNotFound)
	}
	rows, err := b.db.Query(ctx, `DELETE FROM wagers WHERE id = $1 RETURNING `+wagerColumns, wagerID)
	if err != nil {
		return Wager{}, err
	}
	wagers, err := scanWagers(rows)
	if err != nil {
		return Wager{}, err
	}
	if len(wagers) == 0 {
		return Wager{}, fmt.Errorf("wager %s: %w", id, game.ErrNotFound)
	}
	return wagers[0], nil
}

// FindByAccount lists the open wagers of account, newest first.
func (b *PostgresBook) FindByAccount(ctx context.Context, account string) ([]Wager, error) {
	rows, err := b.db.Query(ctx, `SELECT `+wagerColumns+` FROM wagers
        WHERE account_id = $1 ORDER BY placed_at DESC, seq DESC`, account)
	if err != nil {
		return nil, err
	}
	return scanWagers(rows)
}

// All lists every open wager, newest first.
func (b *PostgresBook) All(ctx context.Context) ([]Wager, error) {
	rows, err := b.db.Query(ctx, `SELECT `+wagerColumns+` FROM wagers ORDER BY placed_at DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	return scanWagers(rows)
}

// Clear deletes every open wager.
func (b *PostgresBook) Clear(ctx context.Context) error {
	_, err := b.db.Exec(ctx, `DELETE FROM wagers`)
	return err
}

// Drain deletes and returns every wager in a single statement, so two
// concurrent resolutions can never observe the same wager.
func (b *PostgresBook) Drain(ctx context.Context) ([]Wager, error) {
	rows, err := b.db.Query(ctx, `WITH drained AS (DELETE FROM wagers RETURNING `+wagerColumns+`, seq)
        SELECT `+wagerColumns+` FROM drained ORDER BY placed_at DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	return scanWagers(rows)
}

func scanWagers(rows pgx.Rows) ([]Wager, error) {
	defer rows.Close()
	var wagers []Wager
	for rows.Next() {
		var (
			id       uuid.UUID
			color    string
			placedAt time.Time
			w        Wager
		)
		if err := rows.Scan(&id, &w.Account, &color, &w.Amount, &placedAt); err != nil {
			return nil, err
		}
		w.ID = id.String()
		w.Color = game.Color(color)
		w.PlacedAt = placedAt.UTC()
		wagers = append(wagers, w)
	}
	return wagers, rows.Err()
}
