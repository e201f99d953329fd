// Package audit keeps the append-only records behind the profit and history
// reports: ledger events (coins given, lost, redeemed) and draw results.
package audit

import (
	"context"
	"time"

	"github.com/pesocoin/colorgame/internal/game"
)

// Kind classifies a ledger event.
type Kind string

const (
	KindGiven    Kind = "given"
	KindLost     Kind = "lost"
	KindRedeemed Kind = "redeemed"
)

// ManualAdjustment is the account recorded for operator corrections of totals.
const ManualAdjustment = "manual_adjustment"

// Event is a single append-only ledger record. Amount is signed so manual
// adjustments can lower a total.
type Event struct {
	Kind    Kind
	Account string
	Amount  int64
	At      time.Time
}

// Draw is an immutable draw result.
type Draw struct {
	ID     string       `json:"id"`
	Colors []game.Color `json:"colors"`
	At     time.Time    `json:"at"`
}

// Store records ledger events and aggregates them by kind.
type Store interface {
	Record(ctx context.Context, events ...Event) error
	Sum(ctx context.Context, kind Kind) (int64, error)
	// Reset clears every recorded event.
	Reset(ctx context.Context) error
}

// History records draws. Draws returns newest first.
type History interface {
	AppendDraw(ctx context.Context, d Draw) error
	Draws(ctx context.Context) ([]Draw, error)
	Reset(ctx context.Context) error
}
