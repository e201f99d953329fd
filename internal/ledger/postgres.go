package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps balances in the accounts table. The CHECK constraint on
// balance backs the non-negative invariant; conditional debits use the balance
// predicate in the UPDATE itself.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed balance store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertCreditSQL = `INSERT INTO accounts (id, balance) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance, updated_at = now()
        RETURNING balance`

// Balance returns the balance for account, creating the row when missing.
func (s *PostgresStore) Balance(ctx context.Context, account string) (int64, error) {
	if _, err := s.db.Exec(ctx, `INSERT INTO accounts (id, balance) VALUES ($1, 0)
        ON CONFLICT (id) DO NOTHING`, account); err != nil {
		return 0, fmt.Errorf("ensure account %s: %w", account, err)
	}
	var balance int64
	if err := s.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, account).Scan(&balance); err != nil {
		return 0, fmt.Errorf("balance %s: %w", account, err)
	}
	return balance, nil
}

// Lookup selects the balance row without inserting it.
func (s *PostgresStore) Lookup(ctx context.Context, account string) (int64, bool, error) {
	var balance int64
	err := s.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, account).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s: %w", account, err)
	}
	return balance, true, nil
}

// ConditionalDecrement debits account only when balance >= amount.
func (s *PostgresStore) ConditionalDecrement(ctx context.Context, account string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	var balance int64
	err := s.db.QueryRow(ctx, `UPDATE accounts SET balance = balance - $2, updated_at = now()
        WHERE id = $1 AND balance >= $2 RETURNING balance`, account, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("debit %s: %w", account, err)
	}
	current, balErr := s.Balance(ctx, account)
	if balErr != nil {
		return 0, balErr
	}
	return current, ErrInsufficientFunds
}

// Increment credits account, creating it when missing.
func (s *PostgresStore) Increment(ctx context.Context, account string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	var balance int64
	if err := s.db.QueryRow(ctx, upsertCreditSQL, account, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("credit %s: %w", account, err)
	}
	return balance, nil
}

// Set overrides the balance of account.
func (s *PostgresStore) Set(ctx context.Context, account string, balance int64) error {
	if balance < 0 {
		return ErrNegativeAmount
	}
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, balance) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()`, account, balance)
	if err != nil {
		return fmt.Errorf("set %s: %w", account, err)
	}
	return nil
}

// BulkIncrement sends every credit in a single batch inside one transaction.
func (s *PostgresStore) BulkIncrement(ctx context.Context, credits []Credit) error {
	if err := validateCredits(credits); err != nil {
		return err
	}
	if len(credits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	batch := &pgx.Batch{}
	for _, c := range credits {
		batch.Queue(upsertCreditSQL, c.Account, c.Amount)
	}
	results := tx.SendBatch(ctx, batch)
	for _, c := range credits {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("bulk credit %s: %w", c.Account, err)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Accounts lists balances ordered for the leaderboard.
func (s *PostgresStore) Accounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, balance FROM accounts ORDER BY balance DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ResetAll zeroes every balance.
func (s *PostgresStore) ResetAll(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `UPDATE accounts SET balance = 0, updated_at = now()`)
	return err
}
