// Package reporting serves the read-only views of the game: leaderboard,
// draw history, profit totals and the active bet list.
package reporting

import (
	"context"

	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/wager"
)

const (
	LeaderboardPageSize = 10
	HistoryPageSize     = 10
	ActiveBetsPageSize  = 25
)

// Standing is one leaderboard row.
type Standing struct {
	Rank    int    `json:"rank"`
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// Profits summarizes the house position.
type Profits struct {
	TotalGiven    int64 `json:"total_given"`
	TotalLost     int64 `json:"total_lost"`
	TotalRedeemed int64 `json:"total_redeemed"`
	Profit        int64 `json:"profit"`
}

// Service reads from the stores without mutating them.
type Service struct {
	ledger  ledger.Store
	history audit.History
	events  audit.Store
	book    wager.Book
}

// NewService builds a reporting service.
func NewService(ledger ledger.Store, history audit.History, events audit.Store, book wager.Book) *Service {
	return &Service{ledger: ledger, history: history, events: events, book: book}
}

// Leaderboard ranks accounts by balance, highest first.
func (s *Service) Leaderboard(ctx context.Context, page int) (Page[Standing], error) {
	accounts, err := s.ledger.Accounts(ctx)
	if err != nil {
		return Page[Standing]{}, err
	}
	rows := make([]Standing, len(accounts))
	for i, a := range accounts {
		rows[i] = Standing{Rank: i + 1, Account: a.ID, Balance: a.Balance}
	}
	return Paginate(rows, page, LeaderboardPageSize), nil
}

// History lists draws newest first.
func (s *Service) History(ctx context.Context, page int) (Page[audit.Draw], error) {
	draws, err := s.history.Draws(ctx)
	if err != nil {
		return Page[audit.Draw]{}, err
	}
	return Paginate(draws, page, HistoryPageSize), nil
}

// Profits reports coins lost by members minus coins redeemed, alongside the
// total given away.
func (s *Service) Profits(ctx context.Context) (Profits, error) {
	var p Profits
	var err error
	if p.TotalGiven, err = s.events.Sum(ctx, audit.KindGiven); err != nil {
		return Profits{}, err
	}
	if p.TotalLost, err = s.events.Sum(ctx, audit.KindLost); err != nil {
		return Profits{}, err
	}
	if p.TotalRedeemed, err = s.events.Sum(ctx, audit.KindRedeemed); err != nil {
		return Profits{}, err
	}
	p.Profit = p.TotalLost - p.TotalRedeemed
	return p, nil
}

// ActiveBets lists the open wagers aggregated by account and color.
func (s *Service) ActiveBets(ctx context.Context, page int) (Page[wager.Aggregate], error) {
	open, err := s.book.All(ctx)
	if err != nil {
		return Page[wager.Aggregate]{}, err
	}
	return Paginate(wager.AggregateByAccountColor(open), page, ActiveBetsPageSize), nil
}
