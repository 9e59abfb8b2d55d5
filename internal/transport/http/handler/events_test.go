package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/buildstream-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, ev domain.DomainEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func validEventBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(domain.DomainEvent{
		Type:       domain.EventMessageCreated,
		ActorID:    "u1",
		ActorRole:  domain.RoleUser,
		EntityType: "messages",
		EntityID:   "m1",
		Body:       "hello",
		Source:     domain.SourceMobileApp,
	})
	require.NoError(t, err)
	return body
}

func TestIngest_InvalidJSON(t *testing.T) {
	h := NewEventHandler(&mockDispatcher{})
	r := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Ingest(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIngest_ValidationFailure(t *testing.T) {
	h := NewEventHandler(&mockDispatcher{})
	body, _ := json.Marshal(domain.DomainEvent{Type: domain.EventMessageCreated}) // missing actor/entity
	r := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Ingest(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIngest_UnknownType_BadRequest(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, mock.Anything).Return(domain.ErrBadRequest)
	h := NewEventHandler(d)

	body, _ := json.Marshal(domain.DomainEvent{
		Type: "payment_received", ActorID: "u1", EntityType: "payments", EntityID: "p1",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Ingest(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	d.AssertExpectations(t)
}

func TestIngest_HappyPath_Accepted(t *testing.T) {
	d := &mockDispatcher{}
	var got domain.DomainEvent
	d.On("Dispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(domain.DomainEvent)
	}).Return(nil)
	h := NewEventHandler(d)

	r := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(validEventBody(t)))
	rr := httptest.NewRecorder()
	h.Ingest(rr, r)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, domain.EventMessageCreated, got.Type)
	assert.Equal(t, "u1", got.ActorID)
	d.AssertExpectations(t)
}

func TestIngest_Redelivery_StillAccepted(t *testing.T) {
	d := &mockDispatcher{}
	// Dispatch absorbs duplicates internally and returns nil; the producer
	// sees the same 202 either way.
	d.On("Dispatch", mock.Anything, mock.Anything).Return(nil).Twice()
	h := NewEventHandler(d)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(validEventBody(t)))
		rr := httptest.NewRecorder()
		h.Ingest(rr, r)
		assert.Equal(t, http.StatusAccepted, rr.Code)
	}
	d.AssertExpectations(t)
}
