package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/logging"
	"github.com/pesocoin/colorgame/internal/notification"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

type flakyLedger struct {
	ledger.Store
	calls  int
	failAt int
}

func (f *flakyLedger) BulkIncrement(ctx context.Context, credits []ledger.Credit) error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("connection reset")
	}
	return f.Store.BulkIncrement(ctx, credits)
}

func newTestService(led ledger.Store) (*Service, audit.Store, audit.History, *testNotifier) {
	events := audit.NewMemoryStore()
	history := audit.NewMemoryHistory()
	n := &testNotifier{}
	return NewService(led, events, history, n, logging.Discard()), events, history, n
}

func TestGiveRecordsGivenTotal(t *testing.T) {
	ctx := context.Background()
	led := ledger.NewInMemory()
	svc, events, _, _ := newTestService(led)

	res, err := svc.Give(ctx, "alice", 300)
	if err != nil {
		t.Fatalf("give: %v", err)
	}
	if res.Balance != 300 {
		t.Fatalf("expected balance 300, got %d", res.Balance)
	}
	if given, _ := events.Sum(ctx, audit.KindGiven); given != 300 {
		t.Fatalf("expected given total 300, got %d", given)
	}
	if _, err := svc.Give(ctx, "alice", -1); !errors.Is(err, game.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := svc.Give(ctx, "", 10); !errors.Is(err, game.ErrInvalidAccount) {
		t.Fatalf("expected invalid account, got %v", err)
	}
}

func TestMassGiveawayCreditsDistinctAccounts(t *testing.T) {
	ctx := context.Background()
	led := ledger.NewInMemory()
	svc, events, _, n := newTestService(led)

	res, err := svc.MassGiveaway(ctx, []string{"a", "b", "a", " ", "c"}, 50)
	if err != nil {
		t.Fatalf("giveaway: %v", err)
	}
	if len(res.Credited) != 3 || res.Total != 150 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, acct := range []string{"a", "b", "c"} {
		if b, _ := led.Balance(ctx, acct); b != 50 {
			t.Fatalf("%s: expected 50, got %d", acct, b)
		}
	}
	if given, _ := events.Sum(ctx, audit.KindGiven); given != 150 {
		t.Fatalf("expected given total 150, got %d", given)
	}
	if n.last.Kind != notification.KindGiveaway {
		t.Fatalf("expected giveaway notification, got %q", n.last.Kind)
	}

	if _, err := svc.MassGiveaway(ctx, nil, 50); !errors.Is(err, game.ErrInvalidAccount) {
		t.Fatalf("expected empty giveaway to be rejected, got %v", err)
	}
	if _, err := svc.MassGiveaway(ctx, []string{"a"}, 0); !errors.Is(err, game.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestMassGiveawayReportsPartialSuccess(t *testing.T) {
	ctx := context.Background()
	led := &flakyLedger{Store: ledger.NewInMemory(), failAt: 2}
	svc, events, _, _ := newTestService(led)

	accounts := make([]string, giveawayChunk+20)
	for i := range accounts {
		accounts[i] = fmt.Sprintf("member-%03d", i)
	}
	res, err := svc.MassGiveaway(ctx, accounts, 10)
	be, ok := ledger.AsBulkError(err)
	if !ok {
		t.Fatalf("expected bulk error, got %v", err)
	}
	if len(be.Succeeded) != giveawayChunk || len(be.Failed) != 20 || len(res.Credited) != giveawayChunk {
		t.Fatalf("unexpected partial result succeeded=%d failed=%d", len(be.Succeeded), len(be.Failed))
	}
	if b, _ := led.Balance(ctx, accounts[len(accounts)-1]); b != 0 {
		t.Fatalf("failed chunk must not be credited, got %d", b)
	}
	if given, _ := events.Sum(ctx, audit.KindGiven); given != int64(giveawayChunk*10) {
		t.Fatalf("only credited accounts count as given, got %d", given)
	}
}

func TestGift(t *testing.T) {
	ctx := context.Background()
	led := ledger.NewInMemory()
	svc, _, _, n := newTestService(led)
	ledger.SeedBalance(led, "alice", 100)

	res, err := svc.Gift(ctx, "alice", "bob", 40)
	if err != nil {
		t.Fatalf("gift: %v", err)
	}
	if res.FromBalance != 60 || res.ToBalance != 40 {
		t.Fatalf("unexpected balances %+v", res)
	}
	if n.last.Kind != notification.KindGiftReceived || n.last.Destination != "bob" {
		t.Fatalf("expected recipient notification, got %+v", n.last)
	}

	if _, err := svc.Gift(ctx, "alice", "bob", 61); !errors.Is(err, game.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if b, _ := led.Balance(ctx, "bob"); b != 40 {
		t.Fatalf("failed gift must not credit, got %d", b)
	}
	if _, err := svc.Gift(ctx, "alice", "alice", 1); !errors.Is(err, game.ErrInvalidAccount) {
		t.Fatalf("expected self gift to be rejected, got %v", err)
	}
	if _, err := svc.Gift(ctx, "alice", "  ", 1); !errors.Is(err, game.ErrInvalidAccount) {
		t.Fatalf("expected blank recipient to be rejected, got %v", err)
	}
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	led := ledger.NewInMemory()
	svc, _, _, _ := newTestService(led)
	ledger.SeedBalance(led, "alice", 100)

	if b, err := svc.Adjust(ctx, "alice", 25); err != nil || b != 125 {
		t.Fatalf("add: %d %v", b, err)
	}
	if b, err := svc.Adjust(ctx, "alice", -125); err != nil || b != 0 {
		t.Fatalf("remove: %d %v", b, err)
	}
	if _, err := svc.Adjust(ctx, "alice", -1); !errors.Is(err, game.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if _, err := svc.Adjust(ctx, "alice", 0); !errors.Is(err, game.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := svc.Adjust(ctx, "", 5); !errors.Is(err, game.ErrInvalidAccount) {
		t.Fatalf("expected invalid account, got %v", err)
	}
}

func TestTotalsAndResets(t *testing.T) {
	ctx := context.Background()
	led := ledger.NewInMemory()
	svc, events, history, _ := newTestService(led)
	ledger.SeedBalance(led, "alice", 100)
	_ = history.AppendDraw(ctx, audit.Draw{ID: "d1", Colors: []game.Color{game.Red, game.Red, game.Blue}, At: time.Now()})

	if err := svc.AdjustTotalGiven(ctx, 500); err != nil {
		t.Fatalf("adjust given: %v", err)
	}
	if err := svc.AdjustProfits(ctx, -20); err != nil {
		t.Fatalf("adjust profits: %v", err)
	}
	if given, _ := events.Sum(ctx, audit.KindGiven); given != 500 {
		t.Fatalf("expected given 500, got %d", given)
	}
	if lost, _ := events.Sum(ctx, audit.KindLost); lost != -20 {
		t.Fatalf("expected lost -20, got %d", lost)
	}

	if err := svc.ResetProfits(ctx); err != nil {
		t.Fatalf("reset profits: %v", err)
	}
	if given, _ := events.Sum(ctx, audit.KindGiven); given != 0 {
		t.Fatalf("expected totals cleared, got %d", given)
	}
	if err := svc.ResetHistory(ctx); err != nil {
		t.Fatalf("reset history: %v", err)
	}
	if draws, _ := history.Draws(ctx); len(draws) != 0 {
		t.Fatalf("expected history cleared, got %d", len(draws))
	}
	if err := svc.ResetBalances(ctx); err != nil {
		t.Fatalf("reset balances: %v", err)
	}
	if b, _ := led.Balance(ctx, "alice"); b != 0 {
		t.Fatalf("expected zero balance, got %d", b)
	}
}
