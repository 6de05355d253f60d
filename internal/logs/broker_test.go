package logs

import (
	"testing"
)

func TestBrokerDeliversToAllSubscribers(t *testing.T) {
	b := NewBroker(nil)

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer b.Unsubscribe(sub1)
	defer b.Unsubscribe(sub2)

	b.Emit(EventBuildLog, map[string]any{"build_id": "b1"})

	for _, sub := range []*Subscriber{sub1, sub2} {
		select {
		case event := <-sub.Ch:
			if event.Name != EventBuildLog {
				t.Errorf("event name = %q, want %q", event.Name, EventBuildLog)
			}
		default:
			t.Error("subscriber did not receive the event")
		}
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(nil)

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	if _, ok := <-sub.Ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", b.SubscriberCount())
	}

	// Double unsubscribe must not panic.
	b.Unsubscribe(sub)
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker(nil)

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	// Overfill past the channel buffer; Emit must never block.
	for i := 0; i < cap(sub.Ch)+10; i++ {
		b.Emit(EventRunLog, i)
	}

	if got := len(sub.Ch); got != cap(sub.Ch) {
		t.Errorf("buffered events = %d, want %d", got, cap(sub.Ch))
	}
}

func TestNopEmitter(t *testing.T) {
	// Must be safe to call with anything.
	NopEmitter{}.Emit(EventWorkflowStatus, nil)
}

func TestSubscriberIDsAreUnique(t *testing.T) {
	b := NewBroker(nil)

	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		sub := b.Subscribe()
		if seen[sub.ID] {
			t.Fatalf("duplicate subscriber id %q", sub.ID)
		}
		seen[sub.ID] = true
	}
	if got := b.SubscriberCount(); got != 64 {
		t.Errorf("SubscriberCount() = %d, want 64", got)
	}
}
