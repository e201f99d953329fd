package round

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pesocoin/colorgame/internal/audit"
	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/logging"
	"github.com/pesocoin/colorgame/internal/notification"
	"github.com/pesocoin/colorgame/internal/wager"
)

type fixture struct {
	ctl     *Controller
	ledger  ledger.Store
	book    wager.Book
	history audit.History
	events  audit.Store
	sent    *sentMessages
}

type sentMessages struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (s *sentMessages) Send(_ context.Context, m notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return nil
}

func (s *sentMessages) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = m.Kind
	}
	return out
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		ledger:  ledger.NewInMemory(),
		book:    wager.NewMemoryBook(),
		history: audit.NewMemoryHistory(),
		events:  audit.NewMemoryStore(),
		sent:    &sentMessages{},
	}
	if cfg.Countdown == 0 {
		cfg.Countdown = time.Hour
	}
	ctl, err := NewController(cfg, Deps{
		Ledger:   f.ledger,
		Book:     f.book,
		History:  f.history,
		Events:   f.events,
		Notifier: f.sent,
		Logger:   logging.Discard(),
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	f.ctl = ctl
	t.Cleanup(func() { _, _ = ctl.Reset(context.Background()) })
	return f
}

func (f *fixture) open(t *testing.T) {
	t.Helper()
	if _, err := f.ctl.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, account string) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), account)
	if err != nil {
		t.Fatalf("balance %s: %v", account, err)
	}
	return b
}

func TestOpenTwiceReportsAlreadyOpen(t *testing.T) {
	f := newFixture(t, Config{})
	f.open(t)
	if _, err := f.ctl.Open(context.Background()); !errors.Is(err, game.ErrRoundAlreadyOpen) {
		t.Fatalf("expected already open, got %v", err)
	}
	if !f.ctl.State().Open || !f.ctl.State().TimerActive {
		t.Fatal("expected round open with active timer")
	}
}

func TestCloseWhenClosed(t *testing.T) {
	f := newFixture(t, Config{})
	if _, err := f.ctl.Close(context.Background()); !errors.Is(err, game.ErrRoundClosed) {
		t.Fatalf("expected round closed, got %v", err)
	}
}

func TestPlaceWagerDebitsAndBooks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 1_000)
	f.open(t)

	p, err := f.ctl.PlaceWager(ctx, "a", "Red", 200)
	if err != nil {
		t.Fatalf("place wager: %v", err)
	}
	if p.Balance != 800 || p.SessionTotal != 200 || p.Wager.Color != game.Red {
		t.Fatalf("unexpected placement %+v", p)
	}
	if _, err := f.ctl.PlaceWager(ctx, "a", "blue", 150); err != nil {
		t.Fatalf("second wager: %v", err)
	}

	open, _ := f.book.FindByAccount(ctx, "a")
	if len(open) != 2 {
		t.Fatalf("expected 2 open wagers, got %d", len(open))
	}
	if held := wager.Sum(open); held+f.balance(t, "a") != 1_000 {
		t.Fatalf("conservation broken: held %d balance %d", held, f.balance(t, "a"))
	}
}

func TestPlaceWagerValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{WagerCap: 100, SessionCap: 150})

	if _, err := f.ctl.PlaceWager(ctx, "a", "red", 10); !errors.Is(err, game.ErrRoundClosed) {
		t.Fatalf("expected round closed, got %v", err)
	}
	f.open(t)

	cases := []struct {
		name   string
		color  string
		amount int64
		want   error
	}{
		{"zero amount", "red", 0, game.ErrInvalidAmount},
		{"negative amount", "red", -5, game.ErrInvalidAmount},
		{"over wager cap", "red", 101, game.ErrInvalidAmount},
		{"unknown color", "black", 10, game.ErrInvalidColor},
		{"zero balance", "red", 100, game.ErrInsufficientBalance},
	}
	for _, tc := range cases {
		if _, err := f.ctl.PlaceWager(ctx, "a", tc.color, tc.amount); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if got := f.ctl.State().SessionTotals["a"]; got != 0 {
		t.Fatalf("rejected wagers must not count toward the session, got %d", got)
	}
}

func TestSessionCapCheckedBeforeBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{WagerCap: 100, SessionCap: 150})
	ledger.SeedBalance(f.ledger, "rich", 1_000)
	f.open(t)

	if _, err := f.ctl.PlaceWager(ctx, "rich", "red", 100); err != nil {
		t.Fatalf("first wager: %v", err)
	}
	if _, err := f.ctl.PlaceWager(ctx, "rich", "red", 60); !errors.Is(err, game.ErrSessionLimitExceeded) {
		t.Fatalf("expected session limit, got %v", err)
	}
	if f.balance(t, "rich") != 900 {
		t.Fatalf("rejected wager must not debit, balance %d", f.balance(t, "rich"))
	}
	if all, _ := f.book.All(ctx); len(all) != 1 {
		t.Fatalf("rejected wager must not be booked, got %d", len(all))
	}

	// A zero-balance account is still held to the cap before funds are checked.
	f2 := newFixture(t, Config{WagerCap: 100, SessionCap: 50})
	f2.open(t)
	if _, err := f2.ctl.PlaceWager(ctx, "broke", "red", 60); !errors.Is(err, game.ErrSessionLimitExceeded) {
		t.Fatalf("expected session limit for zero balance account, got %v", err)
	}
}

func TestOpenResetsSessionTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{WagerCap: 500, SessionCap: 500})
	ledger.SeedBalance(f.ledger, "a", 2_000)
	f.open(t)
	if _, err := f.ctl.PlaceWager(ctx, "a", "red", 500); err != nil {
		t.Fatalf("wager: %v", err)
	}
	if _, err := f.ctl.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	f.open(t)
	if _, err := f.ctl.PlaceWager(ctx, "a", "red", 500); err != nil {
		t.Fatalf("expected fresh session budget, got %v", err)
	}
}

func TestResolveScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	for _, acct := range []string{"A", "B", "C"} {
		ledger.SeedBalance(f.ledger, acct, 100)
	}
	f.open(t)
	_, _ = f.ctl.PlaceWager(ctx, "A", "red", 10)
	_, _ = f.ctl.PlaceWager(ctx, "B", "blue", 10)
	_, _ = f.ctl.PlaceWager(ctx, "C", "green", 10)
	if _, err := f.ctl.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	res, err := f.ctl.Resolve(ctx, []string{"red", "red", "blue"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	byAccount := map[string]Outcome{}
	for _, o := range res.Outcomes {
		byAccount[o.Account] = o
	}
	if o := byAccount["A"]; o.Hits != 2 || o.Multiplier != 3 || o.Payout != 30 {
		t.Fatalf("unexpected outcome for A: %+v", o)
	}
	if o := byAccount["B"]; o.Hits != 1 || o.Multiplier != 2 || o.Payout != 20 {
		t.Fatalf("unexpected outcome for B: %+v", o)
	}
	if o := byAccount["C"]; o.Hits != 0 || o.Payout != 0 || o.Lost != 10 {
		t.Fatalf("unexpected outcome for C: %+v", o)
	}

	if got := f.balance(t, "A"); got != 120 {
		t.Fatalf("A: expected 120, got %d", got)
	}
	if got := f.balance(t, "B"); got != 110 {
		t.Fatalf("B: expected 110, got %d", got)
	}
	if got := f.balance(t, "C"); got != 90 {
		t.Fatalf("C: expected 90, got %d", got)
	}
	if lost, _ := f.events.Sum(ctx, audit.KindLost); lost != 10 {
		t.Fatalf("expected lost total 10, got %d", lost)
	}
	if all, _ := f.book.All(ctx); len(all) != 0 {
		t.Fatalf("expected empty book after resolution, got %d", len(all))
	}
	if res.PaidOut != 50 || res.Lost != 10 {
		t.Fatalf("unexpected totals paid=%d lost=%d", res.PaidOut, res.Lost)
	}
}

func TestResolveAggregatesPerColor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 100)
	f.open(t)
	_, _ = f.ctl.PlaceWager(ctx, "a", "red", 10)
	_, _ = f.ctl.PlaceWager(ctx, "a", "red", 15)
	_, _ = f.ctl.PlaceWager(ctx, "a", "pink", 5)

	res, err := f.ctl.Resolve(ctx, []string{"red", "red", "red"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Outcomes) != 2 {
		t.Fatalf("expected one outcome per color, got %+v", res.Outcomes)
	}
	// 25 on red with three hits pays 4x; pink loses 5.
	if got := f.balance(t, "a"); got != 70+100 {
		t.Fatalf("expected 170, got %d", got)
	}
}

func TestResolveEmptyBookRecordsHistoryOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 100)

	res, err := f.ctl.Resolve(ctx, []string{"red", "blue", "green"})
	if !errors.Is(err, game.ErrNoWagers) {
		t.Fatalf("expected no wagers, got %v", err)
	}
	if res.Draw.ID == "" {
		t.Fatal("expected the recorded draw to be returned")
	}
	draws, _ := f.history.Draws(ctx)
	if len(draws) != 1 {
		t.Fatalf("expected exactly one history record, got %d", len(draws))
	}
	if f.balance(t, "a") != 100 {
		t.Fatal("empty resolution must not touch balances")
	}
	if lost, _ := f.events.Sum(ctx, audit.KindLost); lost != 0 {
		t.Fatalf("empty resolution must not record losses, got %d", lost)
	}
}

func TestResolveTwiceReportsNoWagers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 100)
	f.open(t)
	_, _ = f.ctl.PlaceWager(ctx, "a", "red", 10)

	if _, err := f.ctl.Resolve(ctx, []string{"red", "blue", "green"}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := f.ctl.Resolve(ctx, []string{"red", "blue", "green"}); !errors.Is(err, game.ErrNoWagers) {
		t.Fatalf("expected no wagers on second resolve, got %v", err)
	}
	if f.balance(t, "a") != 110 {
		t.Fatalf("expected single payout, balance %d", f.balance(t, "a"))
	}
}

func TestResolveInvalidDrawHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 100)
	f.open(t)
	_, _ = f.ctl.PlaceWager(ctx, "a", "red", 10)

	for _, draw := range [][]string{{"red", "red"}, {"red", "red", "black"}} {
		if _, err := f.ctl.Resolve(ctx, draw); !errors.Is(err, game.ErrInvalidDraw) {
			t.Fatalf("draw %v: expected invalid draw, got %v", draw, err)
		}
	}
	if draws, _ := f.history.Draws(ctx); len(draws) != 0 {
		t.Fatalf("invalid draw must not be recorded, got %d", len(draws))
	}
	if all, _ := f.book.All(ctx); len(all) != 1 {
		t.Fatal("invalid draw must not consume wagers")
	}
}

func TestCloseKeepsBookAndAggregates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 100)
	ledger.SeedBalance(f.ledger, "b", 100)
	f.open(t)
	_, _ = f.ctl.PlaceWager(ctx, "a", "red", 10)
	_, _ = f.ctl.PlaceWager(ctx, "a", "red", 20)
	_, _ = f.ctl.PlaceWager(ctx, "b", "blue", 5)

	closing, err := f.ctl.Close(ctx)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closing.Wagers != 3 || closing.Total != 35 || len(closing.Aggregates) != 2 {
		t.Fatalf("unexpected closing report %+v", closing)
	}
	if f.ctl.State().Open || f.ctl.State().TimerActive {
		t.Fatal("expected closed round without timer")
	}
	if all, _ := f.book.All(ctx); len(all) != 3 {
		t.Fatalf("closing must not clear the book, got %d", len(all))
	}
}

func TestCancelWagerRefundsWithoutRestoringBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{WagerCap: 100, SessionCap: 100})
	ledger.SeedBalance(f.ledger, "a", 500)
	f.open(t)

	_, _ = f.ctl.PlaceWager(ctx, "a", "red", 40)
	second, _ := f.ctl.PlaceWager(ctx, "a", "blue", 60)

	c, err := f.ctl.CancelWager(ctx, "a", "", false)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if c.Wager.ID != second.Wager.ID {
		t.Fatalf("expected most recent wager to be canceled, got %s", c.Wager.ID)
	}
	if c.Balance != 460 {
		t.Fatalf("expected refund to 460, got %d", c.Balance)
	}
	if got := f.ctl.State().SessionTotals["a"]; got != 100 {
		t.Fatalf("session total must not be decremented, got %d", got)
	}
	if _, err := f.ctl.PlaceWager(ctx, "a", "red", 1); !errors.Is(err, game.ErrSessionLimitExceeded) {
		t.Fatalf("expected session budget to stay spent, got %v", err)
	}

	_, _ = f.ctl.CancelWager(ctx, "a", "", false)
	if _, err := f.ctl.CancelWager(ctx, "a", "", false); !errors.Is(err, game.ErrNoActiveWager) {
		t.Fatalf("expected no active wager, got %v", err)
	}
}

func TestCancelWagerPrivileges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 100)
	f.open(t)
	p, _ := f.ctl.PlaceWager(ctx, "a", "red", 25)
	_, _ = f.ctl.Close(ctx)

	if _, err := f.ctl.CancelWager(ctx, "a", "", false); !errors.Is(err, game.ErrRoundClosed) {
		t.Fatalf("expected round closed for member, got %v", err)
	}
	if _, err := f.ctl.CancelWager(ctx, "admin", "missing", true); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	c, err := f.ctl.CancelWager(ctx, "admin", p.Wager.ID, true)
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if c.Wager.Account != "a" || f.balance(t, "a") != 100 {
		t.Fatalf("expected refund to owner, got %+v balance %d", c, f.balance(t, "a"))
	}

	f.open(t)
	ledger.SeedBalance(f.ledger, "b", 50)
	theirs, _ := f.ctl.PlaceWager(ctx, "b", "blue", 30)
	mine, _ := f.ctl.PlaceWager(ctx, "a", "red", 10)

	c, err = f.ctl.CancelWager(ctx, "a", theirs.Wager.ID, false)
	if err != nil {
		t.Fatalf("member cancel with id: %v", err)
	}
	if c.Wager.ID != mine.Wager.ID {
		t.Fatalf("member cancel must fall back to own latest wager, got %s", c.Wager.ID)
	}
	if left, _ := f.book.FindByAccount(ctx, "b"); len(left) != 1 || f.balance(t, "b") != 20 {
		t.Fatalf("other member's wager must stay, got %+v balance %d", left, f.balance(t, "b"))
	}
}

func TestConcurrentWagersRespectSessionCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{WagerCap: 500, SessionCap: 500})
	ledger.SeedBalance(f.ledger, "a", 10_000)
	f.open(t)

	var accepted int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctl.PlaceWager(ctx, "a", "red", 100)
			switch {
			case err == nil:
				atomic.AddInt32(&accepted, 1)
			case !errors.Is(err, game.ErrSessionLimitExceeded):
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != 5 {
		t.Fatalf("expected exactly 5 wagers to reach the cap, got %d", accepted)
	}
	if got := f.ctl.State().SessionTotals["a"]; got != 500 {
		t.Fatalf("expected session total 500, got %d", got)
	}
	if f.balance(t, "a") != 9_500 {
		t.Fatalf("expected balance 9500, got %d", f.balance(t, "a"))
	}
}

func TestConcurrentWagersSingleFundedSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 100)
	f.open(t)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, color := range []string{"red", "blue"} {
		wg.Add(1)
		go func(color string) {
			defer wg.Done()
			_, err := f.ctl.PlaceWager(ctx, "a", color, 100)
			errs <- err
		}(color)
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, game.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("expected one success and one insufficient balance, got %d/%d", ok, insufficient)
	}
}

func TestCountdownAutoCloses(t *testing.T) {
	f := newFixture(t, Config{Countdown: 60 * time.Millisecond, Tick: 10 * time.Millisecond})
	f.open(t)

	deadline := time.Now().Add(2 * time.Second)
	for f.ctl.State().Open {
		if time.Now().After(deadline) {
			t.Fatal("countdown did not close the round")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var closed bool
	for _, k := range f.sent.kinds() {
		if k == notification.KindRoundClosed {
			closed = true
		}
	}
	if !closed {
		t.Fatalf("expected a round closed notification, got %v", f.sent.kinds())
	}
}

func TestManualCloseCancelsCountdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Countdown: 80 * time.Millisecond, Tick: 10 * time.Millisecond})
	f.open(t)
	if _, err := f.ctl.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.ctl.SetCountdown(time.Hour); err != nil {
		t.Fatalf("set countdown: %v", err)
	}
	// A stale timer from the first round must not close the second one.
	f.open(t)
	time.Sleep(200 * time.Millisecond)

	if !f.ctl.State().Open {
		t.Fatal("expected the second round to remain open")
	}
	closes := 0
	for _, k := range f.sent.kinds() {
		if k == notification.KindRoundClosed {
			closes++
		}
	}
	if closes != 1 {
		t.Fatalf("expected only the manual close, got %d", closes)
	}
}

func TestResetRefundsOpenWagers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	ledger.SeedBalance(f.ledger, "a", 100)
	f.open(t)
	_, _ = f.ctl.PlaceWager(ctx, "a", "red", 30)
	_, _ = f.ctl.PlaceWager(ctx, "a", "blue", 20)

	refunded, err := f.ctl.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(refunded) != 2 || f.balance(t, "a") != 100 {
		t.Fatalf("expected full refund, got %d wagers balance %d", len(refunded), f.balance(t, "a"))
	}
	if all, _ := f.book.All(ctx); len(all) != 0 {
		t.Fatal("expected empty book after reset")
	}
	if f.ctl.State().Open {
		t.Fatal("expected closed round after reset")
	}
}

type failingBook struct {
	wager.Book
}

func (failingBook) Insert(context.Context, wager.Wager) error {
	return errors.New("disk full")
}

func TestPlaceWagerRefundsWhenBookFails(t *testing.T) {
	ctx := context.Background()
	led := ledger.NewInMemory()
	ledger.SeedBalance(led, "a", 100)
	ctl, err := NewController(Config{Countdown: time.Hour}, Deps{
		Ledger:  led,
		Book:    failingBook{wager.NewMemoryBook()},
		History: audit.NewMemoryHistory(),
		Events:  audit.NewMemoryStore(),
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(func() { _, _ = ctl.Reset(ctx) })
	_, _ = ctl.Open(ctx)

	if _, err := ctl.PlaceWager(ctx, "a", "red", 40); err == nil {
		t.Fatal("expected book failure")
	}
	if b, _ := led.Balance(ctx, "a"); b != 100 {
		t.Fatalf("failed wager must be refunded, balance %d", b)
	}
	if got := ctl.State().SessionTotals["a"]; got != 0 {
		t.Fatalf("failed wager must not count toward the session, got %d", got)
	}
}

func TestSetLimitsValidation(t *testing.T) {
	f := newFixture(t, Config{})
	if err := f.ctl.SetWagerCap(0); !errors.Is(err, game.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := f.ctl.SetCountdown(500 * time.Millisecond); !errors.Is(err, game.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := f.ctl.SetWagerCap(250); err != nil {
		t.Fatalf("set cap: %v", err)
	}
	if f.ctl.State().WagerCap != 250 {
		t.Fatalf("expected cap 250, got %d", f.ctl.State().WagerCap)
	}
}
