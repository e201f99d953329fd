package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix prefixes every subject the NATS notifier publishes on.
const SubjectPrefix = "colorgame.events."

// Publisher is the subset of *nats.Conn used by NATSNotifier.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSNotifier publishes notifications as JSON so chat adapters can relay them.
type NATSNotifier struct {
	pub Publisher
}

// NewNATSNotifier builds a notifier over a NATS connection or any Publisher.
func NewNATSNotifier(pub Publisher) *NATSNotifier {
	return &NATSNotifier{pub: pub}
}

// Send publishes message on SubjectPrefix + kind.
func (n *NATSNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.pub == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.pub.Publish(SubjectPrefix+message.Kind, data); err != nil {
		return fmt.Errorf("publish %s: %w", message.Kind, err)
	}
	return nil
}
