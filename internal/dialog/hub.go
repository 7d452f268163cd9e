package dialog

import (
	"sync"
	"time"
)

// TurnEvent is one utterance broadcast to dashboard live subscribers.
type TurnEvent struct {
	CallSID   string    `json:"call_sid"`
	TurnID    string    `json:"turn_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans turn events out to subscribers. Slow subscribers drop events
// rather than blocking the dialog loop.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan TurnEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan TurnEvent]struct{})}
}

func (h *Hub) Subscribe() (<-chan TurnEvent, func()) {
	ch := make(chan TurnEvent, 64)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Publish(ev TurnEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
