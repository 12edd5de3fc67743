package bus

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestPubSubBusDeliversToTopicSubscribers(t *testing.T) {
	b := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(b.Close)

	sub := b.Subscribe("a", "b")
	other := b.Subscribe("c")

	b.Publish("b", "payload")

	select {
	case got := <-sub:
		if got != "payload" {
			t.Fatalf("unexpected payload %v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for payload")
	}

	select {
	case got := <-other:
		t.Fatalf("unexpected delivery to unrelated topic: %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPayloadType(t *testing.T) {
	if got := payloadType(nil); got != "<nil>" {
		t.Fatalf("expected <nil>, got %q", got)
	}
	if got := payloadType(3); got != "int" {
		t.Fatalf("expected int, got %q", got)
	}
}
