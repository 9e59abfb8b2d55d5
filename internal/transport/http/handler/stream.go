package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/buildstream-notify/internal/domain"
	"github.com/buildstream-notify/internal/transport/http/middleware"
)

// heartbeatInterval keeps intermediaries from reaping idle stream
// connections.
const heartbeatInterval = 30 * time.Second

type streamHub interface {
	Subscribe(recipientID string) (string, <-chan domain.Change)
	Unsubscribe(recipientID, subID string)
}

// StreamHandler serves the live notification stream over SSE. Each request
// holds one hub subscription for its lifetime; the client reconnects through
// its channel manager when the connection drops.
type StreamHandler struct {
	hub streamHub
}

func NewStreamHandler(hub streamHub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	subID, changes := h.hub.Subscribe(claims.UserID)
	defer h.hub.Unsubscribe(claims.UserID, subID)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case c, open := <-changes:
			if !open {
				return
			}
			// Same visibility predicate as the batch fetch: what the poll
			// path hides, the push path hides too.
			if !domain.Visible(c.Notification) {
				continue
			}
			payload, err := json.Marshal(c)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Kind, payload)
			flusher.Flush()
		}
	}
}
