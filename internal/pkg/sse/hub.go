// Package sse fans notification events out to per-user server-sent-event
// subscribers. It is the web-push-equivalent delivery channel.
package sse

import "sync"

// Event is one message pushed to a user's open streams.
type Event struct {
	UserID string
	Event  string
	Data   interface{}
}

// Hub tracks subscribers per user and broadcasts without blocking: a slow
// consumer drops events rather than stalling the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a stream for userID and returns the event channel plus
// a cleanup function the caller must invoke when the stream closes.
func (h *Hub) Subscribe(userID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan Event]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[userID], ch)
		close(ch)
		if len(h.subscribers[userID]) == 0 {
			delete(h.subscribers, userID)
		}
	}
	return ch, cleanup
}

// Publish delivers the event to every open stream of the user.
func (h *Hub) Publish(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default:
			// Full buffer: drop instead of blocking the publisher.
		}
	}
}

// SubscriberCount reports the active streams for a user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
