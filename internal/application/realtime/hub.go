package realtime

import (
	"sync"

	"github.com/buildstream-notify/internal/domain"
	"github.com/google/uuid"
)

// Hub fans live notification changes out to per-recipient subscriber
// channels. A recipient can hold any number of concurrent subscriptions
// (several browser tabs, a stream reconnect racing its predecessor).
//
// Publish never blocks: a subscriber whose buffer is full misses that change
// and is expected to reconcile on its next full fetch.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan domain.Change
	buffer      int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subscribers: make(map[string]map[string]chan domain.Change),
		buffer:      buffer,
	}
}

// Subscribe registers a new listener for recipientID and returns the change
// channel plus the subscription id needed to unsubscribe.
func (h *Hub) Subscribe(recipientID string) (string, <-chan domain.Change) {
	subID := uuid.NewString()
	ch := make(chan domain.Change, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[recipientID] == nil {
		h.subscribers[recipientID] = make(map[string]chan domain.Change)
	}
	h.subscribers[recipientID][subID] = ch
	return subID, ch
}

// Unsubscribe removes and closes one subscription. Unknown ids are a no-op,
// so teardown paths can call it unconditionally.
func (h *Hub) Unsubscribe(recipientID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[recipientID]
	if !ok {
		return
	}
	ch, ok := subs[subID]
	if !ok {
		return
	}
	delete(subs, subID)
	if len(subs) == 0 {
		delete(h.subscribers, recipientID)
	}
	close(ch)
}

// Publish delivers c to every current subscriber of recipientID. Slow
// subscribers drop the change rather than stall the publisher.
func (h *Hub) Publish(recipientID string, c domain.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[recipientID] {
		select {
		case ch <- c:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscriptions for a recipient.
func (h *Hub) SubscriberCount(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[recipientID])
}
