package round

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/metrics"
	"github.com/pesocoin/colorgame/internal/notification"
	"github.com/pesocoin/colorgame/internal/wager"
)

// Opening describes a freshly opened round.
type Opening struct {
	Colors    []game.Color  `json:"colors"`
	Countdown time.Duration `json:"countdown"`
	ClosesAt  time.Time     `json:"closes_at"`
}

// Closing is the report produced when betting closes. The wagers stay in the
// book until a draw resolves them.
type Closing struct {
	Trigger    string            `json:"trigger"`
	Aggregates []wager.Aggregate `json:"aggregates"`
	Wagers     int               `json:"wagers"`
	Total      int64             `json:"total"`
}

// Open starts a round and its countdown. Session totals are reset.
func (c *Controller) Open(ctx context.Context) (Opening, error) {
	c.mu.Lock()
	if c.open {
		c.mu.Unlock()
		return Opening{}, game.ErrRoundAlreadyOpen
	}
	c.open = true
	c.generation++
	c.sessionTotals = make(map[string]int64)

	timerCtx, cancel := context.WithCancel(context.Background())
	c.stopTimer = cancel
	gen := c.generation
	countdown, tick := c.cfg.Countdown, c.cfg.Tick
	opening := Opening{Colors: c.cfg.Palette.Colors(), Countdown: countdown, ClosesAt: c.now().Add(countdown)}
	c.mu.Unlock()

	go c.runCountdown(timerCtx, gen, countdown, tick)

	metrics.RoundsOpened.Inc()
	metrics.RoundOpen.Set(1)
	c.logger.Info("round opened", "countdown", countdown.String())
	c.notify(ctx, notification.Message{
		Kind: notification.KindRoundOpened,
		Body: fmt.Sprintf("Betting is now OPEN! Closing in %d seconds", int(countdown.Seconds())),
		Fields: map[string]string{
			"seconds": strconv.Itoa(int(countdown.Seconds())),
		},
	})
	return opening, nil
}

// Close stops betting and reports the open wagers aggregated by account and
// color. Closing does not resolve or clear the book.
func (c *Controller) Close(ctx context.Context) (Closing, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return Closing{}, fmt.Errorf("betting is already closed: %w", game.ErrRoundClosed)
	}
	closing, err := c.closeLocked(ctx, triggerManual)
	c.mu.Unlock()
	if err != nil {
		return Closing{}, err
	}
	c.afterClose(ctx, closing)
	return closing, nil
}

// Reset force-closes the round and refunds every open wager. The book is empty
// afterwards.
func (c *Controller) Reset(ctx context.Context) ([]wager.Wager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wagers, err := c.book.Drain(ctx)
	if err != nil {
		return nil, fmt.Errorf("drain wagers: %w", err)
	}
	refunds := make([]ledger.Credit, 0, len(wagers))
	for _, w := range wagers {
		refunds = append(refunds, ledger.Credit{Account: w.Account, Amount: w.Amount})
	}
	if err := c.ledger.BulkIncrement(ctx, refunds); err != nil {
		c.restore(ctx, wagers)
		return nil, fmt.Errorf("refund wagers: %w", err)
	}

	wasOpen := c.open
	c.open = false
	c.cancelTimerLocked()
	c.sessionTotals = make(map[string]int64)

	if wasOpen {
		metrics.RoundsClosed.WithLabelValues(triggerReset).Inc()
	}
	metrics.RoundOpen.Set(0)
	c.logger.Warn("round reset", "refunded_wagers", len(wagers), "refunded_total", wager.Sum(wagers))
	return wagers, nil
}

func (c *Controller) closeLocked(ctx context.Context, trigger string) (Closing, error) {
	wagers, err := c.book.All(ctx)
	if err != nil {
		return Closing{}, fmt.Errorf("snapshot wagers: %w", err)
	}
	c.open = false
	c.cancelTimerLocked()
	return Closing{
		Trigger:    trigger,
		Aggregates: wager.AggregateByAccountColor(wagers),
		Wagers:     len(wagers),
		Total:      wager.Sum(wagers),
	}, nil
}

func (c *Controller) afterClose(ctx context.Context, closing Closing) {
	metrics.RoundsClosed.WithLabelValues(closing.Trigger).Inc()
	metrics.RoundOpen.Set(0)
	c.logger.Info("round closed", "trigger", closing.Trigger, "wagers", closing.Wagers, "total", closing.Total)

	body := "ALL BETS ARE NOW CLOSED. Rolling soon."
	if closing.Wagers == 0 {
		body = "Betting closed. No bets were placed."
	}
	c.notify(ctx, notification.Message{
		Kind: notification.KindRoundClosed,
		Body: body,
		Fields: map[string]string{
			"trigger": closing.Trigger,
			"wagers":  strconv.Itoa(closing.Wagers),
			"total":   strconv.FormatInt(closing.Total, 10),
		},
	})
}

func (c *Controller) cancelTimerLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
}

// runCountdown publishes the remaining time on every tick and closes the round
// when the countdown expires. Cancelling ctx stops it without closing.
func (c *Controller) runCountdown(ctx context.Context, gen uint64, countdown, tick time.Duration) {
	deadline := time.NewTimer(countdown)
	defer deadline.Stop()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	started := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := countdown - time.Since(started)
			if remaining <= 0 {
				continue
			}
			c.notify(ctx, notification.Message{
				Kind:   notification.KindCountdown,
				Body:   fmt.Sprintf("Closing in: %d seconds", int(remaining.Round(time.Second).Seconds())),
				Fields: map[string]string{"remaining": remaining.Round(time.Second).String()},
			})
		case <-deadline.C:
			c.expire(gen)
			return
		}
	}
}

func (c *Controller) expire(gen uint64) {
	ctx := context.Background()
	c.mu.Lock()
	if !c.open || c.generation != gen || c.stopTimer == nil {
		c.mu.Unlock()
		return
	}
	closing, err := c.closeLocked(ctx, triggerTimer)
	c.mu.Unlock()
	if err != nil {
		c.logger.Error("auto close failed", "error", err)
		c.mu.Lock()
		if c.generation == gen {
			c.cancelTimerLocked()
		}
		c.mu.Unlock()
		return
	}
	c.afterClose(ctx, closing)
}

func (c *Controller) notify(ctx context.Context, msg notification.Message) {
	if c.notifier == nil {
		return
	}
	if msg.Destination == "" {
		msg.Destination = c.cfg.AdminChannel
	}
	if err := c.notifier.Send(ctx, msg); err != nil {
		c.logger.Warn("notification failed", "kind", msg.Kind, "error", err)
	}
}
