package round

import (
	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/wager"
)

// Outcome is the settlement of one (account, color) aggregate against a draw.
type Outcome struct {
	Account    string     `json:"account"`
	Color      game.Color `json:"color"`
	Total      int64      `json:"total"`
	Hits       int        `json:"hits"`
	Multiplier int64      `json:"multiplier"`
	Payout     int64      `json:"payout"`
	Lost       int64      `json:"lost"`
}

// Won reports whether the aggregate's color appeared in the draw.
func (o Outcome) Won() bool { return o.Hits > 0 }

// Resolution is the result of resolving a draw against the wager book.
type Resolution struct {
	Draw     audit.Draw `json:"draw"`
	Outcomes []Outcome  `json:"outcomes"`
	PaidOut  int64      `json:"paid_out"`
	Lost     int64      `json:"lost"`
}

// Settle computes payouts for every aggregate. The payout already includes the
// returned stake: one hit pays twice the total, three hits pay four times.
func Settle(draw []game.Color, aggregates []wager.Aggregate) []Outcome {
	outcomes := make([]Outcome, 0, len(aggregates))
	for _, a := range aggregates {
		hits := game.Hits(draw, a.Color)
		o := Outcome{
			Account:    a.Account,
			Color:      a.Color,
			Total:      a.Total,
			Hits:       hits,
			Multiplier: game.Multiplier(hits),
		}
		if o.Won() {
			o.Payout = a.Total * o.Multiplier
		} else {
			o.Lost = a.Total
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}
