package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/notification"
)

// giveawayChunk bounds how many accounts one bulk credit touches.
const giveawayChunk = 100

// Service moves coins outside of the betting round: operator grants, member
// gifts, corrections and the administrative resets. None of it touches the
// round lock.
type Service struct {
	ledger   ledger.Store
	events   audit.Store
	history  audit.History
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a payment service.
func NewService(ledger ledger.Store, events audit.Store, history audit.History, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, events: events, history: history, notifier: notifier, logger: logger, now: time.Now}
}

// GiveResult is the balance of an account after a grant.
type GiveResult struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
	Balance int64  `json:"balance"`
}

// Give credits amount to account and records it as given.
func (s *Service) Give(ctx context.Context, account string, amount int64) (GiveResult, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return GiveResult{}, fmt.Errorf("account is required: %w", game.ErrInvalidAccount)
	}
	if amount < 0 {
		return GiveResult{}, fmt.Errorf("give amount must not be negative: %w", game.ErrInvalidAmount)
	}
	balance, err := s.ledger.Increment(ctx, account, amount)
	if err != nil {
		return GiveResult{}, fmt.Errorf("credit %s: %w", account, err)
	}
	s.record(ctx, audit.Event{Kind: audit.KindGiven, Account: account, Amount: amount, At: s.now().UTC()})
	s.logger.Info("coins given", "account", account, "amount", amount, "balance", balance)
	return GiveResult{Account: account, Amount: amount, Balance: balance}, nil
}

// GiveawayResult lists the accounts credited by a mass giveaway.
type GiveawayResult struct {
	Amount   int64    `json:"amount"`
	Credited []string `json:"credited"`
	Total    int64    `json:"total"`
}

// MassGiveaway credits amount to every distinct account. Accounts are credited
// in bulk chunks; if a chunk fails the returned *ledger.BulkError lists which
// accounts were already credited so the operator can finish the rest.
func (s *Service) MassGiveaway(ctx context.Context, accounts []string, amount int64) (GiveawayResult, error) {
	if amount <= 0 {
		return GiveawayResult{}, fmt.Errorf("giveaway amount must be positive: %w", game.ErrInvalidAmount)
	}
	targets := dedupe(accounts)
	if len(targets) == 0 {
		return GiveawayResult{}, fmt.Errorf("giveaway needs at least one account: %w", game.ErrInvalidAccount)
	}

	res := GiveawayResult{Amount: amount}
	at := s.now().UTC()
	for start := 0; start < len(targets); start += giveawayChunk {
		end := min(start+giveawayChunk, len(targets))
		chunk := targets[start:end]
		credits := make([]ledger.Credit, len(chunk))
		events := make([]audit.Event, len(chunk))
		for i, acct := range chunk {
			credits[i] = ledger.Credit{Account: acct, Amount: amount}
			events[i] = audit.Event{Kind: audit.KindGiven, Account: acct, Amount: amount, At: at}
		}
		if err := s.ledger.BulkIncrement(ctx, credits); err != nil {
			s.logger.Error("giveaway stopped", "credited", len(res.Credited), "remaining", len(targets)-start, "error", err)
			return res, &ledger.BulkError{
				Succeeded: res.Credited,
				Failed:    append([]string(nil), targets[start:]...),
				Err:       err,
			}
		}
		res.Credited = append(res.Credited, chunk...)
		res.Total += amount * int64(len(chunk))
		s.record(ctx, events...)
	}

	s.logger.Info("giveaway completed", "accounts", len(res.Credited), "amount", amount, "total", res.Total)
	s.notify(ctx, notification.Message{
		Kind: notification.KindGiveaway,
		Body: fmt.Sprintf("Giveaway: %d coins sent to %d members", amount, len(res.Credited)),
		Fields: map[string]string{
			"amount":   strconv.FormatInt(amount, 10),
			"accounts": strconv.Itoa(len(res.Credited)),
		},
	})
	return res, nil
}

// GiftResult describes both sides of a gift.
type GiftResult struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      int64  `json:"amount"`
	FromBalance int64  `json:"from_balance"`
	ToBalance   int64  `json:"to_balance"`
}

// Gift moves amount from one member to another. The giver is debited
// conditionally first, so a gift can never overdraw.
func (s *Service) Gift(ctx context.Context, from, to string, amount int64) (GiftResult, error) {
	if amount <= 0 {
		return GiftResult{}, fmt.Errorf("gift amount must be positive: %w", game.ErrInvalidAmount)
	}
	to = strings.TrimSpace(to)
	if to == "" || to == from {
		return GiftResult{}, fmt.Errorf("gift needs a different recipient: %w", game.ErrInvalidAccount)
	}

	fromBalance, err := s.ledger.ConditionalDecrement(ctx, from, amount)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return GiftResult{}, game.ErrInsufficientBalance
		}
		return GiftResult{}, fmt.Errorf("debit %s: %w", from, err)
	}
	toBalance, err := s.ledger.Increment(ctx, to, amount)
	if err != nil {
		if _, refundErr := s.ledger.Increment(ctx, from, amount); refundErr != nil {
			s.logger.Error("refund failed gift", "from", from, "amount", amount, "error", refundErr)
		}
		return GiftResult{}, fmt.Errorf("credit %s: %w", to, err)
	}

	s.logger.Info("gift sent", "from", from, "to", to, "amount", amount)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindGiftReceived,
		Destination: to,
		Body:        fmt.Sprintf("You received %d coins from %s", amount, from),
		Fields:      map[string]string{"from": from, "amount": strconv.FormatInt(amount, 10)},
	})
	return GiftResult{From: from, To: to, Amount: amount, FromBalance: fromBalance, ToBalance: toBalance}, nil
}

// Adjust adds delta to an account. Removing more than the balance fails
// without a mutation.
func (s *Service) Adjust(ctx context.Context, account string, delta int64) (int64, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return 0, fmt.Errorf("account is required: %w", game.ErrInvalidAccount)
	}
	switch {
	case delta == 0:
		return 0, fmt.Errorf("adjustment must not be zero: %w", game.ErrInvalidAmount)
	case delta > 0:
		balance, err := s.ledger.Increment(ctx, account, delta)
		if err != nil {
			return 0, err
		}
		s.logger.Info("balance adjusted", "account", account, "delta", delta, "balance", balance)
		return balance, nil
	}
	balance, err := s.ledger.ConditionalDecrement(ctx, account, -delta)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return 0, game.ErrInsufficientBalance
		}
		return 0, err
	}
	s.logger.Info("balance adjusted", "account", account, "delta", delta, "balance", balance)
	return balance, nil
}

// ResetBalances zeroes every account.
func (s *Service) ResetBalances(ctx context.Context) error {
	if err := s.ledger.ResetAll(ctx); err != nil {
		return err
	}
	s.logger.Warn("all balances reset")
	return nil
}

// AdjustTotalGiven corrects the given total without moving coins.
func (s *Service) AdjustTotalGiven(ctx context.Context, amount int64) error {
	return s.adjustTotal(ctx, audit.KindGiven, amount)
}

// AdjustProfits corrects the profit figure without moving coins. Profit is
// derived from lost coins, so the correction is recorded as a loss.
func (s *Service) AdjustProfits(ctx context.Context, amount int64) error {
	return s.adjustTotal(ctx, audit.KindLost, amount)
}

func (s *Service) adjustTotal(ctx context.Context, kind audit.Kind, amount int64) error {
	if amount == 0 {
		return fmt.Errorf("adjustment must not be zero: %w", game.ErrInvalidAmount)
	}
	if err := s.events.Record(ctx, audit.Event{Kind: kind, Account: audit.ManualAdjustment, Amount: amount, At: s.now().UTC()}); err != nil {
		return err
	}
	s.logger.Info("total adjusted", "kind", string(kind), "amount", amount)
	return nil
}

// ResetProfits clears the given, lost and redeemed totals.
func (s *Service) ResetProfits(ctx context.Context) error {
	if err := s.events.Reset(ctx); err != nil {
		return err
	}
	s.logger.Warn("profit totals reset")
	return nil
}

// ResetHistory clears the draw history.
func (s *Service) ResetHistory(ctx context.Context) error {
	if err := s.history.Reset(ctx); err != nil {
		return err
	}
	s.logger.Warn("draw history reset")
	return nil
}

func (s *Service) record(ctx context.Context, events ...audit.Event) {
	if err := s.events.Record(ctx, events...); err != nil {
		s.logger.Error("record ledger events", "count", len(events), "error", err)
	}
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "kind", msg.Kind, "error", err)
	}
}

func dedupe(accounts []string) []string {
	seen := make(map[string]struct{}, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
