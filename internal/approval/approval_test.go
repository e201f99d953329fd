package approval

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/logging"
)

func admins(ids ...string) Authorizer {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(_ context.Context, member string) (bool, error) {
		return set[member], nil
	}
}

func newWorkflow(t *testing.T, timeout time.Duration) *Workflow {
	t.Helper()
	w, err := NewWorkflow(Config{Timeout: timeout, SystemID: "bot"}, admins("admin", "admin2", "bot"), nil, logging.Discard())
	if err != nil {
		t.Fatalf("new workflow: %v", err)
	}
	return w
}

func TestApproveRunsApplyOnce(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow(t, time.Hour)

	var calls int32
	ticket, err := w.Submit(ctx, Request{Requester: "alice", Kind: KindWithdrawal, Amount: 50}, func(context.Context, string) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ticket.Outcome != OutcomePending || ticket.Token == "" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	approved, err := w.Approve(ctx, ticket.Token, "admin")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Outcome != OutcomeApproved || approved.Approver != "admin" || approved.ResolvedAt == nil {
		t.Fatalf("unexpected approved ticket %+v", approved)
	}
	if _, err := w.Approve(ctx, ticket.Token, "admin2"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected later approval to be ignored, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected apply to run once, ran %d", calls)
	}
}

func TestApproveRejectsIneligibleApprovers(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow(t, time.Hour)
	ticket, _ := w.Submit(ctx, Request{Requester: "admin", Kind: KindRedemption, Amount: 1}, func(context.Context, string) error {
		return nil
	})

	for _, approver := range []string{"admin", "bot", "mallory", ""} {
		if _, err := w.Approve(ctx, ticket.Token, approver); !errors.Is(err, game.ErrUnauthorized) {
			t.Fatalf("approver %q: expected unauthorized, got %v", approver, err)
		}
	}
	got, _ := w.Get(ticket.Token)
	if got.Outcome != OutcomePending {
		t.Fatalf("rejected approvals must leave the request pending, got %s", got.Outcome)
	}
	if _, err := w.Approve(ctx, "unknown", "admin2"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected not found for unknown token, got %v", err)
	}
}

func TestTimeoutLeavesBalanceUnchanged(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewInMemory()
	ledger.SeedBalance(store, "alice", 100)
	w := newWorkflow(t, 30*time.Millisecond)

	ticket, _ := w.Submit(ctx, Request{Requester: "alice", Kind: KindWithdrawal, Amount: 40}, func(ctx context.Context, _ string) error {
		_, err := store.ConditionalDecrement(ctx, "alice", 40)
		return err
	})

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	final, err := w.Wait(waitCtx, ticket.Token)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if final.Outcome != OutcomeTimedOut || final.Reason != "timeout" {
		t.Fatalf("expected timeout, got %+v", final)
	}
	if b, _ := store.Balance(ctx, "alice"); b != 100 {
		t.Fatalf("timed out request must not mutate, balance %d", b)
	}
	if _, err := w.Approve(ctx, ticket.Token, "admin"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected approval after timeout to be ignored, got %v", err)
	}
}

func TestConcurrentApprovalsSingleWinner(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow(t, time.Hour)
	var calls int32
	ticket, _ := w.Submit(ctx, Request{Requester: "alice", Kind: KindWithdrawal, Amount: 5}, func(context.Context, string) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	var wins int32
	var wg sync.WaitGroup
	for _, approver := range []string{"admin", "admin2", "admin", "admin2"} {
		wg.Add(1)
		go func(approver string) {
			defer wg.Done()
			if _, err := w.Approve(ctx, ticket.Token, approver); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(approver)
	}
	wg.Wait()
	if wins != 1 || calls != 1 {
		t.Fatalf("expected a single winner, got wins=%d calls=%d", wins, calls)
	}
}

func TestApplyFailureCancels(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow(t, time.Hour)
	ticket, _ := w.Submit(ctx, Request{Requester: "alice", Kind: KindWithdrawal, Amount: 500}, func(context.Context, string) error {
		return ledger.ErrInsufficientFunds
	})

	got, err := w.Approve(ctx, ticket.Token, "admin")
	if !errors.Is(err, game.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if got.Outcome != OutcomeCanceled || got.Reason != "insufficient_balance" {
		t.Fatalf("unexpected ticket %+v", got)
	}
}

func TestCancelPendingRequest(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow(t, time.Hour)
	ticket, _ := w.Submit(ctx, Request{Requester: "alice", Kind: KindRedemption, Amount: 1}, func(context.Context, string) error {
		t.Fatal("canceled request must not apply")
		return nil
	})

	got, err := w.Cancel(ctx, ticket.Token)
	if err != nil || got.Outcome != OutcomeCanceled {
		t.Fatalf("cancel: %+v %v", got, err)
	}
	if _, err := w.Cancel(ctx, ticket.Token); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected second cancel to fail, got %v", err)
	}
	if _, err := w.Approve(ctx, ticket.Token, "admin"); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected approve after cancel to fail, got %v", err)
	}
}

func TestRequestsDoNotBlockEachOther(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow(t, time.Hour)
	slow, _ := w.Submit(ctx, Request{Requester: "alice", Kind: KindWithdrawal, Amount: 1}, func(context.Context, string) error { return nil })
	fast, _ := w.Submit(ctx, Request{Requester: "bob", Kind: KindWithdrawal, Amount: 1}, func(context.Context, string) error { return nil })

	if _, err := w.Approve(ctx, fast.Token, "admin"); err != nil {
		t.Fatalf("approve second request: %v", err)
	}
	if got, _ := w.Get(slow.Token); got.Outcome != OutcomePending {
		t.Fatalf("first request should still be pending, got %s", got.Outcome)
	}
}

func TestResolvedRequestsArePruned(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow(t, time.Hour)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return start }

	old, _ := w.Submit(ctx, Request{Requester: "alice", Kind: KindWithdrawal, Amount: 5}, func(context.Context, string) error { return nil })
	if _, err := w.Cancel(ctx, old.Token); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	w.now = func() time.Time { return start.Add(30 * time.Minute) }
	fresh, _ := w.Submit(ctx, Request{Requester: "bob", Kind: KindWithdrawal, Amount: 5}, func(context.Context, string) error { return nil })
	if _, err := w.Get(old.Token); err != nil {
		t.Fatalf("recently resolved ticket should still be readable: %v", err)
	}

	w.now = func() time.Time { return start.Add(2 * time.Hour) }
	if _, err := w.Submit(ctx, Request{Requester: "carol", Kind: KindWithdrawal, Amount: 5}, func(context.Context, string) error { return nil }); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := w.Get(old.Token); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected old ticket to be pruned, got %v", err)
	}
	if got, err := w.Get(fresh.Token); err != nil || got.Outcome != OutcomePending {
		t.Fatalf("pending ticket must survive pruning: %+v %v", got, err)
	}
}
