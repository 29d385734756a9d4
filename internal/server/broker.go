package server

import (
	"encoding/json"
	"sync"
)

// CheckInEvent is published to scan-station subscribers when a check-in
// attempt lands, keyed by conference.
type CheckInEvent struct {
	Type         string `json:"type"` // checked-in | checked-out | rejected
	RecordID     string `json:"recordId"`
	AttendeeName string `json:"attendeeName,omitempty"`
	Status       string `json:"status"`
	ConferenceID int64  `json:"conferenceId"`
}

// Broker is an in-process pub/sub for SSE check-in events.
type Broker struct {
	mu   sync.RWMutex
	subs map[int64]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int64]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given conference.
func (b *Broker) Subscribe(conferenceID int64) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[conferenceID] == nil {
		b.subs[conferenceID] = make(map[chan []byte]struct{})
	}
	b.subs[conferenceID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the conference's subscribers.
func (b *Broker) Unsubscribe(conferenceID int64, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[conferenceID], ch)
	if len(b.subs[conferenceID]) == 0 {
		delete(b.subs, conferenceID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given conference.
func (b *Broker) Publish(conferenceID int64, event CheckInEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[conferenceID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
