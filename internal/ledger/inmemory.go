package ledger

import (
	"context"
	"sort"
	"sync"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	balances map[string]int64
}

// NewInMemory creates a concurrency-safe in-memory store used for development
// and unit tests.
func NewInMemory() Store {
	return &inMemoryStore{balances: make(map[string]int64)}
}

func (s *inMemoryStore) Balance(_ context.Context, account string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[account]
	if !ok {
		s.balances[account] = 0
	}
	return balance, nil
}

func (s *inMemoryStore) Lookup(_ context.Context, account string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[account]
	return balance, ok, nil
}

func (s *inMemoryStore) ConditionalDecrement(_ context.Context, account string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	balance := s.balances[account]
	if balance < amount {
		return balance, ErrInsufficientFunds
	}
	balance -= amount
	s.balances[account] = balance
	return balance, nil
}

func (s *inMemoryStore) Increment(_ context.Context, account string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] += amount
	return s.balances[account], nil
}

func (s *inMemoryStore) Set(_ context.Context, account string, balance int64) error {
	if balance < 0 {
		return ErrNegativeAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] = balance
	return nil
}

func (s *inMemoryStore) BulkIncrement(_ context.Context, credits []Credit) error {
	if err := validateCredits(credits); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range credits {
		s.balances[c.Account] += c.Amount
	}
	return nil
}

func (s *inMemoryStore) Accounts(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	accounts := make([]Account, 0, len(s.balances))
	for id, balance := range s.balances {
		accounts = append(accounts, Account{ID: id, Balance: balance})
	}
	s.mu.RUnlock()
	sortAccounts(accounts)
	return accounts, nil
}

func (s *inMemoryStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.balances {
		s.balances[id] = 0
	}
	return nil
}

func sortAccounts(accounts []Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Balance != accounts[j].Balance {
			return accounts[i].Balance > accounts[j].Balance
		}
		return accounts[i].ID < accounts[j].ID
	})
}
