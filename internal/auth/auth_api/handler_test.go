package auth_api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workshop-tickets/internal/auth"
	"workshop-tickets/internal/auth/auth_api"
	"workshop-tickets/internal/config"
	"workshop-tickets/internal/logger"
)

func newHandler() *auth_api.Handler {
	cfg := &config.AuthConfig{
		JWTSecret:   "test-signing-secret",
		AdminSecret: "letmein",
		TokenTTL:    15 * time.Minute,
	}
	return auth_api.NewHandler(cfg, auth.NewMemoryCache(), logger.Nop())
}

func login(t *testing.T, h *auth_api.Handler, secret string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"secret": secret})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLoginWrongSecret(t *testing.T) {
	h := newHandler()

	rec := login(t, h, "guess")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginEmptyConfiguredSecretAlwaysRejects(t *testing.T) {
	h := newHandler()
	h.Config.AdminSecret = ""

	rec := login(t, h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	h := newHandler()

	rec := login(t, h, "letmein")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["token"])

	claims, err := auth.VerifyToken(h.Config.JWTSecret, body["token"])
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.UserID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Equal(t, body["token"], cookies[0].Value)
}

func TestCheckWithBearerToken(t *testing.T) {
	h := newHandler()
	rec := login(t, h, "letmein")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	req := httptest.NewRequest(http.MethodGet, "/auth/check", nil)
	req.Header.Set("Authorization", "Bearer "+body["token"])
	rec = httptest.NewRecorder()
	h.Check(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var claims map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claims))
	assert.Equal(t, "admin", claims["userId"])
}

func TestCheckWithoutToken(t *testing.T) {
	h := newHandler()

	req := httptest.NewRequest(http.MethodGet, "/auth/check", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHandler()
	rec := login(t, h, "letmein")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	token := body["token"]

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The cookie is cleared and the token no longer passes Check.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	req = httptest.NewRequest(http.MethodGet, "/auth/check", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.Check(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithoutTokenStillSucceeds(t *testing.T) {
	h := newHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
