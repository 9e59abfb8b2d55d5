package handler

import (
	"encoding/json"
	"net/http"

	"github.com/buildstream-notify/internal/application/dispatch"
	"github.com/buildstream-notify/internal/domain"
	"github.com/buildstream-notify/internal/pkg/validate"
)

// EventHandler is the intake adapter for upstream event producers (DB
// trigger bridges, webhooks, backend services). Producers deliver
// at-least-once; a replayed event gets the same 202 as the first delivery.
type EventHandler struct {
	dispatcher dispatch.Dispatcher
}

func NewEventHandler(dispatcher dispatch.Dispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher}
}

func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var ev domain.DomainEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.dispatcher.Dispatch(r.Context(), ev); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "accepted"})
}
