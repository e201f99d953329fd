package round

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/metrics"
	"github.com/pesocoin/colorgame/internal/wager"
)

// Placement is the result of an accepted wager.
type Placement struct {
	Wager        wager.Wager `json:"wager"`
	Balance      int64       `json:"balance"`
	SessionTotal int64       `json:"session_total"`
}

// Cancellation is the result of a canceled and refunded wager.
type Cancellation struct {
	Wager   wager.Wager `json:"wager"`
	Balance int64       `json:"balance"`
}

// PlaceWager debits amount from account and books a wager on color. Limits are
// checked before the balance, so a capped request is rejected even when the
// account could not pay for it.
func (c *Controller) PlaceWager(ctx context.Context, account, color string, amount int64) (Placement, error) {
	p, err := c.placeWager(ctx, account, color, amount)
	if err != nil {
		metrics.WagersRejected.WithLabelValues(game.Code(err)).Inc()
		return Placement{}, err
	}
	metrics.WagersPlaced.WithLabelValues(string(p.Wager.Color)).Inc()
	metrics.CoinsWagered.Add(float64(p.Wager.Amount))
	c.logger.Info("wager placed",
		"wager_id", p.Wager.ID,
		"account", account,
		"color", string(p.Wager.Color),
		"amount", amount,
		"balance", p.Balance,
	)
	return p, nil
}

func (c *Controller) placeWager(ctx context.Context, account, color string, amount int64) (Placement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return Placement{}, game.ErrRoundClosed
	}
	if amount <= 0 || amount > c.cfg.WagerCap {
		return Placement{}, fmt.Errorf("amount must be between 1 and %d: %w", c.cfg.WagerCap, game.ErrInvalidAmount)
	}
	parsed, err := c.cfg.Palette.Parse(color)
	if err != nil {
		return Placement{}, err
	}
	candidate := c.sessionTotals[account] + amount
	if candidate > c.cfg.SessionCap {
		return Placement{}, fmt.Errorf("session limit is %d: %w", c.cfg.SessionCap, game.ErrSessionLimitExceeded)
	}

	balance, err := c.ledger.ConditionalDecrement(ctx, account, amount)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return Placement{}, game.ErrInsufficientBalance
		}
		return Placement{}, fmt.Errorf("debit wager: %w", err)
	}

	w := wager.Wager{
		ID:       uuid.NewString(),
		Account:  account,
		Color:    parsed,
		Amount:   amount,
		PlacedAt: c.now().UTC(),
	}
	if err := c.book.Insert(ctx, w); err != nil {
		if _, refundErr := c.ledger.Increment(ctx, account, amount); refundErr != nil {
			c.logger.Error("refund after failed wager insert", "account", account, "amount", amount, "error", refundErr)
		}
		return Placement{}, fmt.Errorf("book wager: %w", err)
	}
	c.sessionTotals[account] = candidate

	return Placement{Wager: w, Balance: balance, SessionTotal: candidate}, nil
}

// CancelWager deletes a wager and refunds it. Privileged callers may cancel any
// wager by id, even while betting is closed. Everyone else cancels their own
// most recent wager while the round is open; a wager id from them is ignored.
// Session totals are not reduced.
func (c *Controller) CancelWager(ctx context.Context, account, wagerID string, privileged bool) (Cancellation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open && !privileged {
		return Cancellation{}, fmt.Errorf("admin privileges required while betting is closed: %w", game.ErrRoundClosed)
	}

	var (
		w   wager.Wager
		err error
	)
	switch {
	case wagerID != "" && privileged:
		w, err = c.book.Delete(ctx, wagerID)
		if err != nil {
			return Cancellation{}, err
		}
	default:
		mine, err := c.book.FindByAccount(ctx, account)
		if err != nil {
			return Cancellation{}, err
		}
		if len(mine) == 0 {
			return Cancellation{}, game.ErrNoActiveWager
		}
		w, err = c.book.Delete(ctx, mine[0].ID)
		if err != nil {
			return Cancellation{}, err
		}
	}

	balance, err := c.ledger.Increment(ctx, w.Account, w.Amount)
	if err != nil {
		if insertErr := c.book.Insert(ctx, w); insertErr != nil {
			c.logger.Error("restore wager after failed refund", "wager_id", w.ID, "error", insertErr)
		}
		return Cancellation{}, fmt.Errorf("refund wager: %w", err)
	}

	metrics.WagersCanceled.Inc()
	c.logger.Info("wager canceled", "wager_id", w.ID, "account", w.Account, "amount", w.Amount, "by", account)
	return Cancellation{Wager: w, Balance: balance}, nil
}

// Wagers lists the open wagers of account, newest first.
func (c *Controller) Wagers(ctx context.Context, account string) ([]wager.Wager, error) {
	return c.book.FindByAccount(ctx, account)
}

// OpenWagers lists every open wager, newest first.
func (c *Controller) OpenWagers(ctx context.Context) ([]wager.Wager, error) {
	return c.book.All(ctx)
}
