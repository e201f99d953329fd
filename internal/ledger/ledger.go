package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pesocoin/colorgame/internal/game"
)

var (
	// ErrInsufficientFunds occurs when a conditional debit finds the balance lower
	// than the requested amount. It matches game.ErrInsufficientBalance.
	ErrInsufficientFunds = fmt.Errorf("ledger: %w", game.ErrInsufficientBalance)

	// ErrNegativeAmount rejects credits or balance overrides below zero.
	ErrNegativeAmount = fmt.Errorf("ledger: %w", game.ErrInvalidAmount)
)

// Account is a member balance as held by the store.
type Account struct {
	ID      string
	Balance int64
}

// Credit is one entry of a bulk increment.
type Credit struct {
	Account string
	Amount  int64
}

// Store is the atomic balance primitive shared by every game component.
// Accounts are created lazily with a zero balance on first reference.
type Store interface {
	Balance(ctx context.Context, account string) (int64, error)
	// Lookup reads a balance without registering the account. The bool is
	// false when the account has never been referenced.
	Lookup(ctx context.Context, account string) (int64, bool, error)
	// ConditionalDecrement subtracts amount only if the balance covers it and
	// returns the new balance. Otherwise it returns ErrInsufficientFunds.
	ConditionalDecrement(ctx context.Context, account string, amount int64) (int64, error)
	Increment(ctx context.Context, account string, amount int64) (int64, error)
	Set(ctx context.Context, account string, balance int64) error
	// BulkIncrement applies every credit in one atomic update.
	BulkIncrement(ctx context.Context, credits []Credit) error
	// Accounts lists all accounts ordered by balance descending, then id.
	Accounts(ctx context.Context) ([]Account, error)
	// ResetAll zeroes every balance.
	ResetAll(ctx context.Context) error
}

// BulkError reports a bulk distribution that stopped part way through.
type BulkError struct {
	Succeeded []string
	Failed    []string
	Err       error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk credit failed for %d of %d accounts (%s): %v",
		len(e.Failed), len(e.Failed)+len(e.Succeeded), strings.Join(e.Failed, ","), e.Err)
}

func (e *BulkError) Unwrap() error { return e.Err }

// AsBulkError extracts a *BulkError from err.
func AsBulkError(err error) (*BulkError, bool) {
	var be *BulkError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func validateCredits(credits []Credit) error {
	for _, c := range credits {
		if c.Amount < 0 {
			return fmt.Errorf("credit %s: %w", c.Account, ErrNegativeAmount)
		}
		if c.Account == "" {
			return fmt.Errorf("credit with empty account: %w", game.ErrNotFound)
		}
	}
	return nil
}
