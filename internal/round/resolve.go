package round

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/metrics"
	"github.com/pesocoin/colorgame/internal/notification"
	"github.com/pesocoin/colorgame/internal/wager"
)

// Resolve records a draw and settles every open wager against it. The draw is
// kept in history even when the book is empty, in which case ErrNoWagers is
// returned alongside the recorded draw. The whole book is consumed.
func (c *Controller) Resolve(ctx context.Context, colors []string) (Resolution, error) {
	draw, err := c.cfg.Palette.ParseDraw(colors)
	if err != nil {
		return Resolution{}, err
	}

	c.mu.Lock()
	res, err := c.resolveLocked(ctx, draw)
	c.mu.Unlock()
	if err != nil {
		return res, err
	}

	metrics.CoinsPaidOut.Add(float64(res.PaidOut))
	metrics.CoinsLost.Add(float64(res.Lost))
	c.logger.Info("draw resolved", "draw_id", res.Draw.ID, "outcomes", len(res.Outcomes), "paid_out", res.PaidOut, "lost", res.Lost)
	c.notify(ctx, notification.Message{
		Kind: notification.KindDrawResolved,
		Body: "Draw: " + joinColors(draw),
		Fields: map[string]string{
			"draw_id":  res.Draw.ID,
			"paid_out": strconv.FormatInt(res.PaidOut, 10),
			"lost":     strconv.FormatInt(res.Lost, 10),
		},
	})
	return res, nil
}

func (c *Controller) resolveLocked(ctx context.Context, draw []game.Color) (Resolution, error) {
	record := audit.Draw{ID: uuid.NewString(), Colors: draw, At: c.now().UTC()}
	if err := c.history.AppendDraw(ctx, record); err != nil {
		return Resolution{}, fmt.Errorf("record draw: %w", err)
	}
	metrics.DrawsResolved.Inc()
	res := Resolution{Draw: record}

	wagers, err := c.book.Drain(ctx)
	if err != nil {
		return res, fmt.Errorf("drain wagers: %w", err)
	}
	if len(wagers) == 0 {
		return res, game.ErrNoWagers
	}

	res.Outcomes = Settle(draw, wager.AggregateByAccountColor(wagers))

	var (
		credits []ledger.Credit
		losses  []audit.Event
	)
	for _, o := range res.Outcomes {
		if o.Won() {
			credits = append(credits, ledger.Credit{Account: o.Account, Amount: o.Payout})
			res.PaidOut += o.Payout
			continue
		}
		losses = append(losses, audit.Event{Kind: audit.KindLost, Account: o.Account, Amount: o.Lost, At: record.At})
		res.Lost += o.Lost
	}

	if err := c.ledger.BulkIncrement(ctx, credits); err != nil {
		c.restore(ctx, wagers)
		return Resolution{Draw: record}, fmt.Errorf("credit payouts: %w", err)
	}
	if err := c.events.Record(ctx, losses...); err != nil {
		c.logger.Error("record losses", "draw_id", record.ID, "error", err)
	}
	return res, nil
}

// restore puts drained wagers back after a failed settlement or refund so the
// held coins are not lost.
func (c *Controller) restore(ctx context.Context, wagers []wager.Wager) {
	for i := len(wagers) - 1; i >= 0; i-- {
		if err := c.book.Insert(ctx, wagers[i]); err != nil {
			c.logger.Error("restore wager", "wager_id", wagers[i].ID, "error", err)
		}
	}
}

func joinColors(draw []game.Color) string {
	parts := make([]string, len(draw))
	for i, c := range draw {
		parts[i] = string(c)
	}
	return strings.Join(parts, " ")
}
