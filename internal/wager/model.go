package wager

import (
	"time"

	"github.com/pesocoin/colorgame/internal/game"
)

// Wager is a single open bet by one account on one color.
type Wager struct {
	ID       string     `json:"id"`
	Account  string     `json:"account"`
	Color    game.Color `json:"color"`
	Amount   int64      `json:"amount"`
	PlacedAt time.Time  `json:"placed_at"`
}

// Aggregate is the total staked by one account on one color.
type Aggregate struct {
	Account string     `json:"account"`
	Color   game.Color `json:"color"`
	Total   int64      `json:"total"`
}

// AggregateByAccountColor sums wagers per (account, color). The result keeps
// the order in which each pair first appears in wagers.
func AggregateByAccountColor(wagers []Wager) []Aggregate {
	type key struct {
		account string
		color   game.Color
	}
	index := make(map[key]int)
	var out []Aggregate
	for _, w := range wagers {
		k := key{w.Account, w.Color}
		if i, ok := index[k]; ok {
			out[i].Total += w.Amount
			continue
		}
		index[k] = len(out)
		out = append(out, Aggregate{Account: w.Account, Color: w.Color, Total: w.Amount})
	}
	return out
}

// Sum returns the total amount held by wagers.
func Sum(wagers []Wager) int64 {
	var total int64
	for _, w := range wagers {
		total += w.Amount
	}
	return total
}
