package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pesocoin/colorgame/internal/game"
)

// PostgresStore keeps ledger events in the ledger_events table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed event store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record appends events in one batch.
func (s *PostgresStore) Record(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`INSERT INTO ledger_events (id, kind, account_id, amount, created_at) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), string(e.Kind), e.Account, e.Amount, e.At.UTC())
	}
	return s.db.SendBatch(ctx, batch).Close()
}

// Sum totals the amounts recorded for kind.
func (s *PostgresStore) Sum(ctx context.Context, kind Kind) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM ledger_events WHERE kind = $1`, string(kind)).Scan(&total)
	return total, err
}

// Reset deletes every event.
func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM ledger_events`)
	return err
}

// PostgresHistory keeps draws in the draws table.
type PostgresHistory struct {
	db *pgxpool.Pool
}

// NewPostgresHistory builds a Postgres-backed draw history.
func NewPostgresHistory(db *pgxpool.Pool) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// AppendDraw stores a draw.
func (h *PostgresHistory) AppendDraw(ctx context.Context, d Draw) error {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return err
	}
	colors := make([]string, len(d.Colors))
	for i, c := range d.Colors {
		colors[i] = string(c)
	}
	_, err = h.db.Exec(ctx, `INSERT INTO draws (id, colors, created_at) VALUES ($1, $2, $3)`, id, colors, d.At.UTC())
	return err
}

// Draws lists draws newest first.
func (h *PostgresHistory) Draws(ctx context.Context) ([]Draw, error) {
	rows, err := h.db.Query(ctx, `SELECT id, colors, created_at FROM draws ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var draws []Draw
	for rows.Next() {
		var (
			id     uuid.UUID
			colors []string
			at     time.Time
		)
		if err := rows.Scan(&id, &colors, &at); err != nil {
			return nil, err
		}
		d := Draw{ID: id.String(), At: at.UTC()}
		for _, c := range colors {
			d.Colors = append(d.Colors, game.Color(c))
		}
		draws = append(draws, d)
	}
	return draws, rows.Err()
}

// Reset deletes the draw history.
func (h *PostgresHistory) Reset(ctx context.Context) error {
	_, err := h.db.Exec(ctx, `DELETE FROM draws`)
	return err
}
