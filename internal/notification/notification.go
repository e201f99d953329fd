package notification

import (
	"context"
	"log/slog"
)

const (
	KindRoundOpened       = "round_opened"
	KindCountdown         = "round_countdown"
	KindRoundClosed       = "round_closed"
	KindDrawResolved      = "draw_resolved"
	KindApprovalRequested = "approval_requested"
	KindApprovalApproved  = "approval_approved"
	KindApprovalTimedOut  = "approval_timed_out"
	KindApprovalCanceled  = "approval_canceled"
	KindGiftReceived      = "gift_received"
	KindGiveaway          = "giveaway"
)

// Message describes a notification payload. Destination is a channel or
// member identifier understood by the chat adapter.
type Message struct {
	Kind        string            `json:"kind"`
	Destination string            `json:"destination"`
	Body        string            `json:"body"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// Multi fans a message out to every notifier and returns the first error.
type Multi []Notifier

// Send delivers message to all notifiers, continuing past failures.
func (m Multi) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
