package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"noteforge-server/pkg/jwt"
	"noteforge-server/pkg/logger"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r)
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Write([]byte(id.UserID + "|" + id.Email))
	})
}

func TestAuthMiddleware(t *testing.T) {
	valid, err := jwt.GenerateToken("user-1", "a@example.com", time.Hour, secret)
	require.NoError(t, err)
	expired, err := jwt.GenerateToken("user-1", "", -time.Minute, secret)
	require.NoError(t, err)
	foreign, err := jwt.GenerateToken("user-1", "", time.Hour, "other-secret")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, "user-1|a@example.com"},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, "user-1|a@example.com"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, ""},
	}

	h := AuthMiddleware(secret)(echoIdentity())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestAuthMiddleware_OptionsPassThrough(t *testing.T) {
	h := AuthMiddleware(secret)(echoIdentity())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/notes", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoggerMiddleware_RecordsUserAndStatus(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	logger.SetupWriter(&buf, "debug", "json")
	t.Cleanup(func() { log.Logger = previous })

	tok, err := jwt.GenerateToken("user-7", "", time.Hour, secret)
	require.NoError(t, err)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := LoggerMiddleware()(AuthMiddleware(secret)(notFound))

	req := httptest.NewRequest(http.MethodGet, "/api/notes/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "user-7", entry["user_id"])
	assert.EqualValues(t, http.StatusNotFound, entry["status"])
	assert.Equal(t, "/api/notes/x", entry["path"])
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		allowed    string
		origin     string
		wantOrigin string
		wantCreds  string
		wantVary   string
	}{
		{"listed origin", "https://app.example.com", "https://app.example.com", "https://app.example.com", "true", "Origin"},
		{"unlisted origin", "https://app.example.com", "https://evil.example", "", "", "Origin"},
		{"wildcard", "*", "https://evil.example", "*", "", ""},
		{"wildcard without origin", "*", "", "*", "", ""},
		{"listed wins over wildcard", "*, https://app.example.com", "https://app.example.com", "https://app.example.com", "true", "Origin"},
		{"wildcard beside a list", "*, https://app.example.com", "https://other.example", "*", "", "Origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORSMiddleware(tt.allowed, "GET,POST", "Authorization")(echoIdentity())

			req := httptest.NewRequest(http.MethodOptions, "/api/notes", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, rec.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tt.wantVary, rec.Header().Get("Vary"))
			assert.Equal(t, "GET,POST", rec.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}
