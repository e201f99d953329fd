package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pesocoin/colorgame/internal/approval"
	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
)

// Reward is a redeemable catalog entry.
type Reward struct {
	Key  string
	Name string
	Cost int64
}

// DefaultRewards is the stock catalog.
var DefaultRewards = []Reward{
	{Key: "nitro", Name: "Discord Nitro", Cost: 500},
	{Key: "steam", Name: "Steam Gift Card", Cost: 1},
	{Key: "gcash", Name: "GCash Credit", Cost: 1},
}

// Service takes coins out of the game. Every withdrawal and redemption goes
// through the approval workflow and only debits once approved.
type Service struct {
	ledger    ledger.Store
	events    audit.Store
	approvals *approval.Workflow
	rewards   []Reward
	byKey     map[string]Reward
	logger    *slog.Logger
	now       func() time.Time
}

// NewService prepares a funding service over the given catalog. An empty
// catalog falls back to DefaultRewards.
func NewService(ledgerBackend ledger.Store, events audit.Store, approvals *approval.Workflow, rewards []Reward, logger *slog.Logger) (*Service, error) {
	if approvals == nil {
		return nil, fmt.Errorf("approval workflow is required")
	}
	if len(rewards) == 0 {
		rewards = DefaultRewards
	}
	if logger == nil {
		logger = slog.Default()
	}
	byKey := make(map[string]Reward, len(rewards))
	catalog := make([]Reward, 0, len(rewards))
	for _, r := range rewards {
		r.Key = strings.ToLower(strings.TrimSpace(r.Key))
		if r.Key == "" || r.Cost <= 0 {
			return nil, fmt.Errorf("reward %q needs a key and a positive cost", r.Key)
		}
		if _, dup := byKey[r.Key]; dup {
			return nil, fmt.Errorf("duplicate reward %q", r.Key)
		}
		byKey[r.Key] = r
		catalog = append(catalog, r)
	}
	return &Service{
		ledger:    ledgerBackend,
		events:    events,
		approvals: approvals,
		rewards:   catalog,
		byKey:     byKey,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Rewards lists the catalog in configuration order.
func (s *Service) Rewards() []Reward {
	return append([]Reward(nil), s.rewards...)
}

// Withdraw files a withdrawal request. The balance is checked now and debited
// conditionally again at approval time; a balance that no longer covers the
// amount cancels the request.
func (s *Service) Withdraw(ctx context.Context, requester string, amount int64) (approval.Ticket, error) {
	if amount <= 0 {
		return approval.Ticket{}, fmt.Errorf("withdrawal must be positive: %w", game.ErrInvalidAmount)
	}
	if err := s.precheck(ctx, requester, amount); err != nil {
		return approval.Ticket{}, err
	}
	return s.approvals.Submit(ctx, approval.Request{
		Requester: requester,
		Kind:      approval.KindWithdrawal,
		Amount:    amount,
		Summary:   fmt.Sprintf("withdraw %d coins", amount),
	}, func(ctx context.Context, approver string) error {
		balance, err := s.debit(ctx, requester, amount)
		if err != nil {
			return err
		}
		s.logger.Info("withdrawal approved", "account", requester, "amount", amount, "approver", approver, "balance", balance)
		return nil
	})
}

// Redeem files a reward redemption for quantity units of the reward.
func (s *Service) Redeem(ctx context.Context, requester, key string, quantity int64) (approval.Ticket, error) {
	reward, ok := s.byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return approval.Ticket{}, fmt.Errorf("reward %q: %w", key, game.ErrNotFound)
	}
	if quantity <= 0 || quantity > math.MaxInt64/reward.Cost {
		return approval.Ticket{}, fmt.Errorf("quantity must be positive: %w", game.ErrInvalidAmount)
	}
	cost := reward.Cost * quantity
	if err := s.precheck(ctx, requester, cost); err != nil {
		return approval.Ticket{}, err
	}
	return s.approvals.Submit(ctx, approval.Request{
		Requester: requester,
		Kind:      approval.KindRedemption,
		Amount:    cost,
		Summary:   fmt.Sprintf("%d %s", quantity, reward.Name),
	}, func(ctx context.Context, approver string) error {
		balance, err := s.debit(ctx, requester, cost)
		if err != nil {
			return err
		}
		if err := s.events.Record(ctx, audit.Event{Kind: audit.KindRedeemed, Account: requester, Amount: cost, At: s.now().UTC()}); err != nil {
			s.logger.Error("record redemption", "account", requester, "amount", cost, "error", err)
		}
		s.logger.Info("redemption approved", "account", requester, "reward", reward.Key, "quantity", quantity, "cost", cost, "approver", approver, "balance", balance)
		return nil
	})
}

func (s *Service) precheck(ctx context.Context, account string, amount int64) error {
	if strings.TrimSpace(account) == "" {
		return fmt.Errorf("requester is required: %w", game.ErrInvalidAccount)
	}
	balance, err := s.ledger.Balance(ctx, account)
	if err != nil {
		return err
	}
	if balance < amount {
		return game.ErrInsufficientBalance
	}
	return nil
}

func (s *Service) debit(ctx context.Context, account string, amount int64) (int64, error) {
	balance, err := s.ledger.ConditionalDecrement(ctx, account, amount)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return 0, game.ErrInsufficientBalance
	}
	return balance, err
}
