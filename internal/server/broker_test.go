package server

import (
	"encoding/json"
	"testing"
)

func TestBrokerScopedPublish(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe(1)
	ch2 := b.Subscribe(2)

	b.Publish(1, CheckInEvent{Type: "checked-in", RecordID: "r1", ConferenceID: 1})

	select {
	case data := <-ch1:
		var ev CheckInEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.RecordID != "r1" || ev.Type != "checked-in" {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("subscriber for conference 1 got no event")
	}

	select {
	case <-ch2:
		t.Fatal("subscriber for conference 2 received a conference 1 event")
	default:
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(1)
	b.Unsubscribe(1, ch)

	b.Publish(1, CheckInEvent{Type: "checked-in", RecordID: "r1", ConferenceID: 1})

	select {
	case <-ch:
		t.Fatal("unsubscribed channel received an event")
	default:
	}
}

func TestBrokerDropsWhenSlow(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(1)

	// Overflow the buffer; Publish must not block.
	for i := 0; i < 100; i++ {
		b.Publish(1, CheckInEvent{Type: "checked-in", ConferenceID: 1})
	}
	if len(ch) != cap(ch) {
		t.Errorf("expected full buffer of %d, got %d", cap(ch), len(ch))
	}
}
