package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

type recorder struct {
	got []Message
}

func (r *recorder) Send(_ context.Context, m Message) error {
	r.got = append(r.got, m)
	return nil
}

func TestNATSNotifierPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub)

	msg := Message{Kind: KindRoundOpened, Destination: "admin", Body: "betting is open", Fields: map[string]string{"seconds": "30"}}
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if pub.subject != "colorgame.events.round_opened" {
		t.Fatalf("unexpected subject %q", pub.subject)
	}
	var decoded Message
	if err := json.Unmarshal(pub.data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Fields["seconds"] != "30" || decoded.Body != msg.Body {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestMultiContinuesPastFailures(t *testing.T) {
	failing := NewNATSNotifier(&fakePublisher{err: errors.New("no responders")})
	rec := &recorder{}

	err := Multi{failing, nil, rec}.Send(context.Background(), Message{Kind: KindCountdown})
	if err == nil {
		t.Fatal("expected first failure to be reported")
	}
	if len(rec.got) != 1 {
		t.Fatalf("expected later notifier to still receive the message")
	}
}
