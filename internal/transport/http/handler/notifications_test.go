package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/buildstream-notify/internal/config"
	"github.com/buildstream-notify/internal/domain"
	jwtinfra "github.com/buildstream-notify/internal/infrastructure/jwt"
	"github.com/buildstream-notify/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockNotifSvc struct{ mock.Mock }

func (m *mockNotifSvc) List(ctx context.Context, recipientID string, limit int32) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID, limit)
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *mockNotifSvc) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotifSvc) MarkRead(ctx context.Context, recipientID, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, recipientID, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotifSvc) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotifSvc) Delete(ctx context.Context, recipientID, notificationID string) error {
	return m.Called(ctx, recipientID, notificationID).Error(0)
}

func (m *mockNotifSvc) ClearAll(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given userID and role.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, role string, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, role)
	require.NoError(t, err)
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

// --- List tests ---

func TestListNotifications_MissingClaims(t *testing.T) {
	h := NewNotificationHandler(&mockNotifSvc{})
	r := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
	rr := httptest.NewRecorder()
	h.List(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListNotifications_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	rows := []domain.Notification{
		{NotificationID: "n1", RecipientID: "a1", Category: domain.CategoryMessage, Title: "New message"},
	}
	svc.On("List", mock.Anything, "a1", int32(0)).Return(rows, nil)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications", "a1", domain.RoleAdmin, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp NotificationsEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "n1", resp.Data[0].NotificationID)
	svc.AssertExpectations(t)
}

func TestListNotifications_LimitParam(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("List", mock.Anything, "a1", int32(10)).Return([]domain.Notification{}, nil)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications?limit=10", "a1", domain.RoleAdmin, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- UnreadCount tests ---

func TestUnreadCount_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("UnreadCount", mock.Anything, "a1").Return(7, nil)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications/unread-count", "a1", domain.RoleAdmin, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.UnreadCount), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp CountEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 7, resp.Count)
	svc.AssertExpectations(t)
}

// --- MarkRead tests ---

func TestMarkRead_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	readAt := time.Now().UTC()
	n := &domain.Notification{NotificationID: "n1", RecipientID: "a1", IsRead: true, ReadAt: &readAt}
	svc.On("MarkRead", mock.Anything, "a1", "n1").Return(n, nil)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodPut, "/v1/notifications/n1/read", "a1", domain.RoleAdmin, nil)
	r = withChiID(r, "n1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp domain.Notification
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.IsRead)
	svc.AssertExpectations(t)
}

func TestMarkRead_OtherRecipients_Forbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("MarkRead", mock.Anything, "a2", "n1").Return(nil, domain.ErrForbidden)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodPut, "/v1/notifications/n1/read", "a2", domain.RoleAdmin, nil)
	r = withChiID(r, "n1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestMarkRead_Unknown_NotFound(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("MarkRead", mock.Anything, "a1", "missing").Return(nil, domain.ErrNotFound)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodPut, "/v1/notifications/missing/read", "a1", domain.RoleAdmin, nil)
	r = withChiID(r, "missing")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- MarkAllRead / Delete / ClearAll tests ---

func TestMarkAllRead_ReturnsCount(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("MarkAllRead", mock.Anything, "a1").Return(3, nil)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodPut, "/v1/notifications/read-all", "a1", domain.RoleAdmin, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkAllRead), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp CountEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Count)
	svc.AssertExpectations(t)
}

func TestDeleteNotification_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("Delete", mock.Anything, "a1", "n1").Return(nil)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodDelete, "/v1/notifications/n1", "a1", domain.RoleAdmin, nil)
	r = withChiID(r, "n1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Delete), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestClearAll_ReturnsCount(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotifSvc{}
	svc.On("ClearAll", mock.Anything, "a1").Return(12, nil)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodDelete, "/v1/notifications", "a1", domain.RoleAdmin, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.ClearAll), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp CountEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 12, resp.Count)
	svc.AssertExpectations(t)
}
