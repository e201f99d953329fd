// Package round owns the betting round state machine and draw resolution.
package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/notification"
	"github.com/pesocoin/colorgame/internal/wager"
)

const (
	DefaultWagerCap   int64 = 500
	DefaultSessionCap int64 = 500
	DefaultCountdown        = 30 * time.Second
	DefaultTick             = 5 * time.Second
)

const (
	triggerManual = "manual"
	triggerTimer  = "timer"
	triggerReset  = "reset"
)

// Config holds the tunable limits of the game.
type Config struct {
	Palette      game.Palette
	WagerCap     int64
	SessionCap   int64
	Countdown    time.Duration
	Tick         time.Duration
	AdminChannel string
}

// Deps aggregates the collaborators a Controller mutates.
type Deps struct {
	Ledger   ledger.Store
	Book     wager.Book
	History  audit.History
	Events   audit.Store
	Notifier notification.Notifier
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Controller serializes every round mutation behind a single mutex.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	ledger   ledger.Store
	book     wager.Book
	history  audit.History
	events   audit.Store
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time

	open          bool
	generation    uint64
	stopTimer     context.CancelFunc
	sessionTotals map[string]int64
}

// NewController validates the configuration and builds a closed controller.
func NewController(cfg Config, deps Deps) (*Controller, error) {
	if deps.Ledger == nil || deps.Book == nil || deps.History == nil || deps.Events == nil {
		return nil, errors.New("round: ledger, book, history and events are required")
	}
	if len(cfg.Palette.Colors()) == 0 {
		cfg.Palette = game.NewPalette(game.DefaultColors)
	}
	if cfg.WagerCap <= 0 {
		cfg.WagerCap = DefaultWagerCap
	}
	if cfg.SessionCap <= 0 {
		cfg.SessionCap = DefaultSessionCap
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Controller{
		cfg:           cfg,
		ledger:        deps.Ledger,
		book:          deps.Book,
		history:       deps.History,
		events:        deps.Events,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		now:           deps.Clock,
		sessionTotals: make(map[string]int64),
	}, nil
}

// State is a read-only snapshot of the round.
type State struct {
	Open          bool             `json:"open"`
	TimerActive   bool             `json:"timer_active"`
	WagerCap      int64            `json:"wager_cap"`
	SessionCap    int64            `json:"session_cap"`
	Countdown     time.Duration    `json:"countdown"`
	Colors        []game.Color     `json:"colors"`
	SessionTotals map[string]int64 `json:"session_totals"`
}

// State returns a snapshot of the round.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	totals := make(map[string]int64, len(c.sessionTotals))
	for k, v := range c.sessionTotals {
		totals[k] = v
	}
	return State{
		Open:          c.open,
		TimerActive:   c.stopTimer != nil,
		WagerCap:      c.cfg.WagerCap,
		SessionCap:    c.cfg.SessionCap,
		Countdown:     c.cfg.Countdown,
		Colors:        c.cfg.Palette.Colors(),
		SessionTotals: totals,
	}
}

// Palette returns the configured color set.
func (c *Controller) Palette() game.Palette {
	return c.cfg.Palette
}

// SetWagerCap changes the per-wager cap.
func (c *Controller) SetWagerCap(limit int64) error {
	if limit < 1 {
		return fmt.Errorf("wager cap must be at least 1: %w", game.ErrInvalidAmount)
	}
	c.mu.Lock()
	c.cfg.WagerCap = limit
	c.mu.Unlock()
	return nil
}

// SetCountdown changes the duration used by the next Open.
func (c *Controller) SetCountdown(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("countdown must be at least 1s: %w", game.ErrInvalidAmount)
	}
	c.mu.Lock()
	c.cfg.Countdown = d
	c.mu.Unlock()
	return nil
}
