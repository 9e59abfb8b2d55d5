package handler

import (
	"context"
	"net/http"

	"github.com/buildstream-notify/internal/domain"
	"github.com/go-chi/chi/v5"
)

type deadLetterStore interface {
	Get(ctx context.Context, deadLetterID string) (*domain.DeadLetter, error)
	Scan(ctx context.Context) ([]domain.DeadLetter, error)
}

type payloadReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// DeadLetterHandler exposes dead-lettered events to operators: the pointer
// rows, and the raw archived payload for diagnosing what the normalizer
// produced.
type DeadLetterHandler struct {
	store    deadLetterStore
	payloads payloadReader
}

func NewDeadLetterHandler(store deadLetterStore, payloads payloadReader) *DeadLetterHandler {
	return &DeadLetterHandler{store: store, payloads: payloads}
}

func (h *DeadLetterHandler) List(w http.ResponseWriter, r *http.Request) {
	letters, err := h.store.Scan(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, letters)
}

func (h *DeadLetterHandler) Payload(w http.ResponseWriter, r *http.Request) {
	dl, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	if dl.PayloadKey == "" {
		writeError(w, http.StatusNotFound, "no payload archived for this dead letter")
		return
	}
	payload, err := h.payloads.Get(r.Context(), dl.PayloadKey)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
