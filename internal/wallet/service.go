package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/wager"
)

// Service exposes account balances backed by the ledger. The caller's own
// account is created on first lookup; other members are only read.
type Service struct {
	ledger ledger.Store
	book   wager.Book
	now    func() time.Time
}

// NewService builds a wallet service instance. book may be nil, in which
// case held coins are reported as zero.
func NewService(ledger ledger.Store, book wager.Book) *Service {
	return &Service{ledger: ledger, book: book, now: time.Now}
}

// Balance returns the ledger balance for the account, registering it when
// missing.
func (s *Service) Balance(ctx context.Context, account string) (Balance, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return Balance{}, fmt.Errorf("account is required: %w", game.ErrInvalidAccount)
	}
	amount, err := s.ledger.Balance(ctx, account)
	if err != nil {
		return Balance{}, err
	}
	return s.withHeld(ctx, account, amount)
}

// Of returns the balance of an existing account. Unknown members yield
// game.ErrNotFound and are not registered.
func (s *Service) Of(ctx context.Context, account string) (Balance, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return Balance{}, fmt.Errorf("account is required: %w", game.ErrInvalidAccount)
	}
	amount, found, err := s.ledger.Lookup(ctx, account)
	if err != nil {
		return Balance{}, err
	}
	if !found {
		return Balance{}, fmt.Errorf("account %s: %w", account, game.ErrNotFound)
	}
	return s.withHeld(ctx, account, amount)
}

func (s *Service) withHeld(ctx context.Context, account string, amount int64) (Balance, error) {
	var held int64
	if s.book != nil {
		open, err := s.book.FindByAccount(ctx, account)
		if err != nil {
			return Balance{}, err
		}
		held = wager.Sum(open)
	}
	return Balance{Account: account, Amount: amount, Held: held, AsOf: s.now().UTC()}, nil
}
