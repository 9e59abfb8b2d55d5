package realtime

import (
	"context"

	"github.com/buildstream-notify/internal/domain"
)

// Subscription adapts the hub to a per-recipient subscribe call whose
// lifetime is bound to a context. In-process consumers (and tests) use it
// where browser clients use the SSE stream.
type Subscription struct {
	hub         *Hub
	recipientID string
}

func (h *Hub) Subscription(recipientID string) *Subscription {
	return &Subscription{hub: h, recipientID: recipientID}
}

// Subscribe opens a change channel that is torn down when ctx is cancelled.
func (s *Subscription) Subscribe(ctx context.Context) (<-chan domain.Change, error) {
	subID, ch := s.hub.Subscribe(s.recipientID)
	go func() {
		<-ctx.Done()
		s.hub.Unsubscribe(s.recipientID, subID)
	}()
	return ch, nil
}
