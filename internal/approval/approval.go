// Package approval implements a two-party confirmation step for balance
// changes a member cannot perform alone.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/metrics"
	"github.com/pesocoin/colorgame/internal/notification"
)

// DefaultTimeout is how long a request waits for an approver.
const DefaultTimeout = 24 * time.Hour

// Kind identifies what a request asks for.
type Kind string

const (
	KindWithdrawal Kind = "withdrawal"
	KindRedemption Kind = "redemption"
)

// Outcome is the terminal or pending state of a request.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApproved Outcome = "approved"
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeCanceled Outcome = "canceled"
)

// Request describes what a member is asking an approver to confirm.
type Request struct {
	Requester string
	Kind      Kind
	Amount    int64
	Summary   string
}

// Apply performs the guarded mutation once an approver confirms.
type Apply func(ctx context.Context, approver string) error

// Authorizer reports whether member may approve requests.
type Authorizer func(ctx context.Context, member string) (bool, error)

// Ticket is the externally visible state of a request.
type Ticket struct {
	Token      string     `json:"token"`
	Requester  string     `json:"requester"`
	Kind       Kind       `json:"kind"`
	Amount     int64      `json:"amount"`
	Summary    string     `json:"summary,omitempty"`
	Outcome    Outcome    `json:"outcome"`
	Approver   string     `json:"approver,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Config tunes the workflow.
type Config struct {
	Timeout  time.Duration
	SystemID string
	Channel  string
}

type pending struct {
	ticket  Ticket
	apply   Apply
	claimed bool
	done    chan struct{}
}

// Workflow tracks pending requests. Each request waits in its own goroutine,
// so requests never block each other.
type Workflow struct {
	cfg       Config
	authorize Authorizer
	notifier  notification.Notifier
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	requests map[string]*pending
}

// NewWorkflow builds a workflow. authorize is required.
func NewWorkflow(cfg Config, authorize Authorizer, notifier notification.Notifier, logger *slog.Logger) (*Workflow, error) {
	if authorize == nil {
		return nil, errors.New("approval: authorizer is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		cfg:       cfg,
		authorize: authorize,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		requests:  make(map[string]*pending),
	}, nil
}

// Submit registers a pending request, announces it to the admin channel and
// starts its timeout.
func (w *Workflow) Submit(ctx context.Context, req Request, apply Apply) (Ticket, error) {
	if req.Requester == "" || apply == nil {
		return Ticket{}, errors.New("approval: requester and apply are required")
	}
	p := &pending{
		ticket: Ticket{
			Token:     uuid.NewString(),
			Requester: req.Requester,
			Kind:      req.Kind,
			Amount:    req.Amount,
			Summary:   req.Summary,
			Outcome:   OutcomePending,
			CreatedAt: w.now().UTC(),
		},
		apply: apply,
		done:  make(chan struct{}),
	}

	w.mu.Lock()
	w.pruneLocked(p.ticket.CreatedAt)
	w.requests[p.ticket.Token] = p
	w.mu.Unlock()

	go w.watch(p.ticket.Token, p.done)

	metrics.Approvals.WithLabelValues(string(req.Kind), string(OutcomePending)).Inc()
	w.logger.Info("approval requested", "token", p.ticket.Token, "kind", string(req.Kind), "requester", req.Requester, "amount", req.Amount)
	w.notify(ctx, notification.KindApprovalRequested, p.ticket)
	return p.ticket, nil
}

// Approve confirms a request. The first qualifying approver wins and Apply
// runs exactly once. If Apply fails the request ends canceled and its error is
// returned.
func (w *Workflow) Approve(ctx context.Context, token, approver string) (Ticket, error) {
	w.mu.Lock()
	p, ok := w.requests[token]
	if !ok || p.claimed || p.ticket.Outcome != OutcomePending {
		w.mu.Unlock()
		return Ticket{}, fmt.Errorf("approval %s: %w", token, game.ErrNotFound)
	}
	requester := p.ticket.Requester
	w.mu.Unlock()

	if approver == "" || approver == requester || approver == w.cfg.SystemID {
		return Ticket{}, fmt.Errorf("approver %q: %w", approver, game.ErrUnauthorized)
	}
	allowed, err := w.authorize(ctx, approver)
	if err != nil {
		return Ticket{}, fmt.Errorf("authorize approver: %w", err)
	}
	if !allowed {
		return Ticket{}, fmt.Errorf("approver %q: %w", approver, game.ErrUnauthorized)
	}

	w.mu.Lock()
	if p.claimed || p.ticket.Outcome != OutcomePending {
		w.mu.Unlock()
		return Ticket{}, fmt.Errorf("approval %s: %w", token, game.ErrNotFound)
	}
	p.claimed = true
	w.mu.Unlock()

	applyErr := p.apply(ctx, approver)

	outcome, kind := OutcomeApproved, notification.KindApprovalApproved
	if applyErr != nil {
		outcome, kind = OutcomeCanceled, notification.KindApprovalCanceled
	}
	ticket := w.finish(p, outcome, approver, applyErr)
	w.notify(ctx, kind, ticket)
	if applyErr != nil {
		w.logger.Warn("approved request failed to apply", "token", token, "approver", approver, "error", applyErr)
		return ticket, fmt.Errorf("apply %s: %w", ticket.Kind, applyErr)
	}
	w.logger.Info("approval granted", "token", token, "approver", approver)
	return ticket, nil
}

// Cancel withdraws a pending request without applying it.
func (w *Workflow) Cancel(ctx context.Context, token string) (Ticket, error) {
	w.mu.Lock()
	p, ok := w.requests[token]
	if !ok || p.claimed || p.ticket.Outcome != OutcomePending {
		w.mu.Unlock()
		return Ticket{}, fmt.Errorf("approval %s: %w", token, game.ErrNotFound)
	}
	p.claimed = true
	w.mu.Unlock()

	ticket := w.finish(p, OutcomeCanceled, "", nil)
	w.notify(ctx, notification.KindApprovalCanceled, ticket)
	return ticket, nil
}

// Get returns the current state of a request.
func (w *Workflow) Get(token string) (Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.requests[token]
	if !ok {
		return Ticket{}, fmt.Errorf("approval %s: %w", token, game.ErrNotFound)
	}
	return p.ticket, nil
}

// Wait blocks until the request resolves or ctx is done.
func (w *Workflow) Wait(ctx context.Context, token string) (Ticket, error) {
	w.mu.Lock()
	p, ok := w.requests[token]
	w.mu.Unlock()
	if !ok {
		return Ticket{}, fmt.Errorf("approval %s: %w", token, game.ErrNotFound)
	}
	select {
	case <-p.done:
		return w.Get(token)
	case <-ctx.Done():
		return Ticket{}, ctx.Err()
	}
}

func (w *Workflow) watch(token string, done <-chan struct{}) {
	timer := time.NewTimer(w.cfg.Timeout)
	defer timer.Stop()
	select {
	case <-done:
		return
	case <-timer.C:
	}

	w.mu.Lock()
	p, ok := w.requests[token]
	if !ok || p.claimed {
		w.mu.Unlock()
		return
	}
	p.claimed = true
	w.mu.Unlock()

	ticket := w.finish(p, OutcomeTimedOut, "", game.ErrTimeout)
	w.logger.Info("approval timed out", "token", token, "kind", string(ticket.Kind))
	w.notify(context.Background(), notification.KindApprovalTimedOut, ticket)
}

// pruneLocked forgets requests resolved more than one timeout ago so their
// tickets stay readable for a while without growing the map forever.
func (w *Workflow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.cfg.Timeout)
	for token, p := range w.requests {
		if at := p.ticket.ResolvedAt; at != nil && at.Before(cutoff) {
			delete(w.requests, token)
		}
	}
}

func (w *Workflow) finish(p *pending, outcome Outcome, approver string, cause error) Ticket {
	w.mu.Lock()
	defer w.mu.Unlock()
	at := w.now().UTC()
	p.ticket.Outcome = outcome
	p.ticket.Approver = approver
	p.ticket.ResolvedAt = &at
	if cause != nil {
		p.ticket.Reason = game.Code(cause)
	}
	close(p.done)
	metrics.Approvals.WithLabelValues(string(p.ticket.Kind), string(outcome)).Inc()
	return p.ticket
}

func (w *Workflow) notify(ctx context.Context, kind string, t Ticket) {
	if w.notifier == nil {
		return
	}
	msg := notification.Message{
		Kind:        kind,
		Destination: w.cfg.Channel,
		Body:        fmt.Sprintf("%s request from %s for %d coins: %s", t.Kind, t.Requester, t.Amount, t.Outcome),
		Fields: map[string]string{
			"token":     t.Token,
			"requester": t.Requester,
			"kind":      string(t.Kind),
			"amount":    strconv.FormatInt(t.Amount, 10),
			"outcome":   string(t.Outcome),
		},
	}
	if t.Summary != "" {
		msg.Fields["summary"] = t.Summary
	}
	if t.Approver != "" {
		msg.Fields["approver"] = t.Approver
	}
	if err := w.notifier.Send(ctx, msg); err != nil {
		w.logger.Warn("approval notification failed", "token", t.Token, "error", err)
	}
}
