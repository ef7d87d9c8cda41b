package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldbook-crm/fieldbook/internal/auth"
	"github.com/fieldbook-crm/fieldbook/internal/model"
)

// newTestHandler builds the middleware-wrapped handler without a database.
// Requests here never reach storage: they are rejected by the auth layer.
func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	jwtMgr, err := auth.NewJWTManager([]byte("middleware-test-secret"), time.Hour)
	require.NoError(t, err)
	srv := New(ServerConfig{
		JWTMgr:              jwtMgr,
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		Port:                0,
		MaxRequestBodyBytes: 1 << 20,
	})
	return srv.Handler()
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) model.APIError {
	t.Helper()
	var body model.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, model.ErrCodeUnauthorized, body.Error.Code)
	assert.NotEmpty(t, body.Meta.RequestID)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/customers", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsForgedToken(t *testing.T) {
	handler := newTestHandler(t)

	otherMgr, err := auth.NewJWTManager([]byte("some-other-secret"), time.Hour)
	require.NoError(t, err)
	token, _, err := otherMgr.IssueToken(model.User{Role: model.RoleLeader})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/customers", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-abc-123", rec.Header().Get("X-Request-ID"))
	body := decodeErrorBody(t, rec)
	assert.Equal(t, "req-abc-123", body.Meta.RequestID)
}

func TestSecurityHeadersSet(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
